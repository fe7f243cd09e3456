package clubsite

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/warpclub/clubsite/chatbot"
)

// Member is one entry of the static club roster.
type Member struct {
	Name     string   `mapstructure:"name" yaml:"name"`
	Role     string   `mapstructure:"role" yaml:"role"`
	Year     string   `mapstructure:"year" yaml:"year"`
	Skills   []string `mapstructure:"skills" yaml:"skills"`
	Image    string   `mapstructure:"image" yaml:"image"`
	GitHub   string   `mapstructure:"github" yaml:"github"`
	LinkedIn string   `mapstructure:"linkedin" yaml:"linkedin"`
	Email    string   `mapstructure:"email" yaml:"email"`
	Bio      string   `mapstructure:"bio" yaml:"bio"`
}

// Initials returns up to two upper-case initials for avatar fallbacks.
func (m Member) Initials() string {
	var out []rune
	for _, part := range strings.Fields(m.Name) {
		r := []rune(part)
		out = append(out, unicode.ToUpper(r[0]))
		if len(out) == 2 {
			break
		}
	}
	return string(out)
}

// ClubInfo is the static club profile. It lives in configuration and can be
// reloaded at runtime.
type ClubInfo struct {
	Name         string   `mapstructure:"name"`
	Tagline      string   `mapstructure:"tagline"`
	About        string   `mapstructure:"about"`
	Mission      string   `mapstructure:"mission"`
	School       string   `mapstructure:"school"`
	ContactEmail string   `mapstructure:"contact_email"`
	MeetingTimes string   `mapstructure:"meeting_times"`
	Location     string   `mapstructure:"location"`
	JoinNote     string   `mapstructure:"join_note"`
	Instagram    string   `mapstructure:"instagram"`
	Activities   []string `mapstructure:"activities"`
	FocusAreas   []string `mapstructure:"focus_areas"`
	PastEvents   []string `mapstructure:"past_events"`
	Members      []Member `mapstructure:"members"`
}

// Presidents returns the names of members whose role is President.
func (ci ClubInfo) Presidents() []Member {
	var out []Member
	for _, m := range ci.Members {
		if strings.EqualFold(m.Role, "president") {
			out = append(out, m)
		}
	}
	return out
}

// Knowledge builds the chat assistant's knowledge from the profile and the
// current event list.
func (ci ClubInfo) Knowledge(events []Event) chatbot.Knowledge {
	k := chatbot.Knowledge{
		ClubName:     ci.Name,
		About:        ci.About,
		Mission:      ci.Mission,
		School:       ci.School,
		ContactEmail: ci.ContactEmail,
		MeetingTimes: ci.MeetingTimes,
		Location:     ci.Location,
		JoinNote:     ci.JoinNote,
		Activities:   ci.Activities,
		FocusAreas:   ci.FocusAreas,
		PastEvents:   append([]string(nil), ci.PastEvents...),
	}
	for _, m := range ci.Members {
		k.Members = append(k.Members, fmt.Sprintf("%s - %s (%s)", m.Name, m.Role, m.Year))
	}
	for _, m := range ci.Presidents() {
		k.Presidents = append(k.Presidents, m.Name)
	}
	for _, e := range events {
		label := e.Title
		if e.EventDate != nil {
			label += " (" + e.EventDate.Format("January 2, 2006") + ")"
		} else {
			label += " (TBD)"
		}
		if e.IsPast() {
			k.PastEvents = append(k.PastEvents, label)
		} else {
			k.UpcomingEvents = append(k.UpcomingEvents, label)
		}
	}
	return k
}

// DefaultClubInfo is the WarP Computer Club profile used when configuration
// provides none.
func DefaultClubInfo() ClubInfo {
	return ClubInfo{
		Name:         "WarP Computer Club",
		Tagline:      "Architecting the digital future through innovation and technology",
		About:        "WarP Computer Club is a premier technology club at Delhi Public School Mathura Road, founded to cultivate digital innovators and push the boundaries of technology.",
		Mission:      "Our mission is to architect the digital future through innovation and technology.",
		School:       "Delhi Public School Mathura Road",
		ContactEmail: "warp.dpsmr@gmail.com",
		MeetingTimes: "Mon to Fri, 08:00 AM to 01:00 PM",
		Location:     "Computer Lab 1/2/3, Senior School Building, Ground Floor",
		JoinNote:     "Only applicable for DPS Mathura Road students.",
		Activities: []string{
			"Competitive Programming", "Web Development", "AI/ML Workshops",
			"Cybersecurity CTF", "Hackathons", "Tech Expo",
		},
		FocusAreas: []string{
			"Programming in Python, JavaScript, Java and C++",
			"AI/ML, data science and neural networks",
			"Cybersecurity, CTF competitions and ethical hacking",
			"Photography, videography, graphic design and content creation",
		},
		PastEvents: []string{"WarP Intra '24", "WarP Intra '23", "WarP Inter '23", "WarP Intra '22", "WarP Inter '22"},
		Members: []Member{
			{Name: "Soustin Roy", Role: "President", Year: "12th Grade", Skills: []string{"Full-Stack Development", "AI/ML", "Leadership"}, GitHub: "soustinroy", LinkedIn: "soustin-roy", Bio: "Visionary leader spearheading technological innovation at WarP Computer Club"},
			{Name: "Deeptanshu Shekhar", Role: "President", Year: "12th Grade", Skills: []string{"Backend Development", "System Architecture", "Leadership"}, GitHub: "deeptanshushekhar", LinkedIn: "deeptanshu-shekhar", Bio: "Visionary leader spearheading technological innovation at WarP Computer Club"},
			{Name: "Girisha Mehra", Role: "Vice President", Year: "11th Grade", Skills: []string{"Frontend Development", "UI/UX Design", "Project Management"}, GitHub: "girishamehra", LinkedIn: "girisha-mehra", Bio: "Strategic director driving club initiatives and fostering tech excellence"},
			{Name: "Aaayan Ahmed War", Role: "Vice President", Year: "11th Grade", Skills: []string{"Machine Learning", "Data Science", "Research"}, GitHub: "aaayanawar", LinkedIn: "aaayan-ahmed-war", Bio: "Strategic director driving club initiatives and fostering tech excellence"},
			{Name: "Ayaan Ali", Role: "Senior Executive", Year: "12th Grade", Skills: []string{"Cybersecurity", "Ethical Hacking", "Network Security"}, GitHub: "ayaanali", LinkedIn: "ayaan-ali-security", Bio: "Experienced leader managing key technical projects and club operations"},
			{Name: "Rishit Uppal", Role: "Senior Executive", Year: "12th Grade", Skills: []string{"DevOps", "Cloud Computing", "Automation"}, GitHub: "rishituppal", LinkedIn: "rishit-uppal", Bio: "Experienced leader managing key technical projects and club operations"},
			{Name: "Ansh Mittal", Role: "Executive", Year: "11th Grade", Skills: []string{"Web Development", "Mobile Apps", "Game Development"}, GitHub: "anshmittal", LinkedIn: "ansh-mittal", Bio: "Dedicated team lead implementing club initiatives and technical solutions"},
			{Name: "Kunal Kachhawa", Role: "Executive", Year: "11th Grade", Skills: []string{"Data Analytics", "Python", "Database Management"}, GitHub: "kunalkachhawa", LinkedIn: "kunal-kachhawa", Bio: "Dedicated team lead implementing club initiatives and technical solutions"},
		},
	}
}

// upcomingPreview returns at most n events that have not finished yet.
func upcomingPreview(events []Event, n int) []Event {
	upcoming, _ := SplitEvents(events)
	if len(upcoming) > n {
		upcoming = upcoming[:n]
	}
	return upcoming
}

// now is swapped in tests.
var now = time.Now
