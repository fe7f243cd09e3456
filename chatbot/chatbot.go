// Package chatbot answers visitor questions about the club with keyword
// rules over a fixed knowledge base.
package chatbot

import (
	"fmt"
	"strings"
	"unicode"
)

// Knowledge is everything the assistant can talk about.
type Knowledge struct {
	ClubName       string
	About          string
	Mission        string
	School         string
	ContactEmail   string
	MeetingTimes   string
	Location       string
	JoinNote       string
	Activities     []string
	FocusAreas     []string
	Members        []string // "Name - Role (Year)"
	Presidents     []string
	UpcomingEvents []string
	PastEvents     []string
}

// rule matches when any keyword occurs in the message. Keywords in words
// must match a whole word; keywords in phrases match as substrings.
type rule struct {
	words   []string
	phrases []string
	reply   func(k Knowledge, msg message) string
}

type message struct {
	text  string
	words map[string]bool
}

func parse(s string) message {
	text := strings.ToLower(strings.TrimSpace(s))
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '\''
	})
	words := make(map[string]bool, len(fields))
	for _, f := range fields {
		words[f] = true
	}
	return message{text: text, words: words}
}

func (m message) has(words []string, phrases []string) bool {
	for _, w := range words {
		if m.words[w] {
			return true
		}
	}
	for _, p := range phrases {
		if strings.Contains(m.text, p) {
			return true
		}
	}
	return false
}

// Responder produces replies from a Knowledge snapshot.
type Responder struct {
	k     Knowledge
	rules []rule
}

// New returns a Responder for k.
func New(k Knowledge) *Responder {
	return &Responder{k: k, rules: defaultRules}
}

// Reply answers msg. Unrecognised questions get a menu of topics.
func (r *Responder) Reply(msg string) string {
	m := parse(msg)
	for _, rl := range r.rules {
		if m.has(rl.words, rl.phrases) {
			return rl.reply(r.k, m)
		}
	}
	return fallback(r.k)
}

func bullets(items []string) string {
	if len(items) == 0 {
		return "• (nothing announced yet)"
	}
	return "• " + strings.Join(items, "\n• ")
}

// defaultRules are tried in order; the first match answers.
var defaultRules = []rule{
	{
		words: []string{"hello", "hi", "hey", "namaste"},
		reply: func(k Knowledge, _ message) string {
			return fmt.Sprintf("Hello! Welcome to %s! I'm here to help you learn about our club, events, members, and activities. What would you like to know?", k.ClubName)
		},
	},
	{
		words:   []string{"about", "club", "mission"},
		phrases: []string{"what is warp"},
		reply: func(k Knowledge, _ message) string {
			return fmt.Sprintf("%s We have %d active members working on projects in programming, AI/ML, cybersecurity, and more. %s",
				k.About, len(k.Members), k.Mission)
		},
	},
	{
		words: []string{"member", "members", "team", "who", "president", "presidents"},
		reply: func(k Knowledge, m message) string {
			if m.words["president"] || m.words["presidents"] {
				switch len(k.Presidents) {
				case 0:
					return "Our leadership team is listed on the Members page."
				case 1:
					return fmt.Sprintf("Our club is led by our President, %s.", k.Presidents[0])
				default:
					return fmt.Sprintf("Our club has %d Presidents: %s.", len(k.Presidents), joinAnd(k.Presidents))
				}
			}
			return fmt.Sprintf("We have %d dedicated members:\n\n%s\n\nEach member brings unique skills in areas like programming, AI/ML, cybersecurity, web development, and more!",
				len(k.Members), strings.Join(k.Members, "\n"))
		},
	},
	{
		words: []string{"event", "events", "competition", "competitions", "intra", "inter", "hackathon"},
		reply: func(k Knowledge, m message) string {
			if m.has([]string{"upcoming", "future", "next", "soon"}, nil) {
				return "Our upcoming events include:\n" + bullets(k.UpcomingEvents)
			}
			return fmt.Sprintf("We organize amazing events! Upcoming: %s. We've also successfully conducted: %s. These events feature competitive programming, hackathons, workshops, and much more.",
				orNone(k.UpcomingEvents), orNone(k.PastEvents))
		},
	},
	{
		words: []string{"contact", "email", "reach", "meeting", "meet", "where"},
		reply: func(k Knowledge, _ message) string {
			return fmt.Sprintf("You can reach us at:\nEmail: %s\nMeeting Times: %s\nLocation: %s\n\nFeel free to visit us during our meeting hours!",
				k.ContactEmail, k.MeetingTimes, k.Location)
		},
	},
	{
		words: []string{"activity", "activities", "learn", "programming", "coding", "workshop", "workshops"},
		reply: func(k Knowledge, _ message) string {
			return "We focus on various exciting activities:\n" + bullets(k.Activities) +
				"\n\nWhether you're interested in competitive programming, web development, AI/ML, or cybersecurity, we have something for everyone!"
		},
	},
	{
		words:   []string{"join", "participate", "register", "signup"},
		phrases: []string{"how to", "sign up"},
		reply: func(k Knowledge, _ message) string {
			reply := fmt.Sprintf("Great to hear you're interested in joining! You can:\n1. Visit us during our meeting times (%s)\n2. Email us at %s\n3. Participate in our upcoming events\n4. Follow our activities and workshops\n\nWe welcome all students passionate about technology!",
				k.MeetingTimes, k.ContactEmail)
			if k.JoinNote != "" {
				reply += " (" + k.JoinNote + ")"
			}
			return reply
		},
	},
	{
		phrases: []string{"focus area", "focus point", "focus on"},
		reply: func(k Knowledge, _ message) string {
			return "Our key focus areas:\n" + bullets(k.FocusAreas)
		},
	},
	{
		words: []string{"language", "languages", "python", "javascript", "java", "c++", "go", "golang"},
		reply: func(Knowledge, message) string {
			return "Our members work with various programming languages including Python, JavaScript, Java, C++, and more! We regularly organize workshops and coding sessions to help everyone grow, whether you're just starting out or sharpening your expertise."
		},
	},
	{
		words:   []string{"ai", "ml"},
		phrases: []string{"machine learning", "artificial intelligence", "data science"},
		reply: func(Knowledge, message) string {
			return "AI/ML is one of our key focus areas! We conduct workshops on machine learning, data science, and AI applications. Our members work on projects involving neural networks, data analysis, and intelligent systems."
		},
	},
	{
		words: []string{"security", "cybersecurity", "cyber", "hacking", "ctf"},
		reply: func(Knowledge, message) string {
			return "Cybersecurity is a major part of our activities! We organize CTF (Capture The Flag) competitions, ethical hacking workshops, and network security sessions."
		},
	},
	{
		words: []string{"skill", "skills", "photo", "photography", "video", "videography", "design", "3d", "model"},
		reply: func(Knowledge, message) string {
			return "Creative and visual skills are an essential part of what we do! Our members explore photography, videography, graphic design, and content creation through hands-on projects and collaborative sessions."
		},
	},
	{
		words:   []string{"school", "dps"},
		phrases: []string{"delhi public school"},
		reply: func(k Knowledge, _ message) string {
			return fmt.Sprintf("We're based at %s, which supports our technological endeavors with its labs and facilities.", k.School)
		},
	},
	{
		words: []string{"thank", "thanks", "thx"},
		reply: func(k Knowledge, _ message) string {
			return fmt.Sprintf("You're welcome! Feel free to ask anything else about %s: members, events, activities, or how to get involved!", k.ClubName)
		},
	},
}

func fallback(k Knowledge) string {
	return fmt.Sprintf(`I'd be happy to help you learn about %s! You can ask me about:

• Our members and leadership team
• Upcoming and past events
• Club activities and focus areas
• How to join or participate
• Contact information and meeting times
• Programming languages and technologies we work with

What would you like to know more about?`, k.ClubName)
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "none announced yet"
	}
	return strings.Join(items, ", ")
}

func joinAnd(items []string) string {
	if len(items) <= 1 {
		return strings.Join(items, "")
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}
