package bot

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rg/neetbot/internal/broadcast"
	"github.com/rg/neetbot/internal/i18n"
	"github.com/rg/neetbot/internal/storage"
)

type ResponseFormatter struct {
	maxQuestionLen int
}

func NewResponseFormatter(maxQuestionLen int) *ResponseFormatter {
	return &ResponseFormatter{maxQuestionLen: maxQuestionLen}
}

// Format normalizes line endings and strips leading and trailing blank lines.
func (rf *ResponseFormatter) Format(text string) string {
	text = strings.TrimSpace(text)

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		if strings.TrimSpace(line) != "" || len(cleaned) > 0 {
			cleaned = append(cleaned, line)
		}
	}

	for len(cleaned) > 0 && strings.TrimSpace(cleaned[len(cleaned)-1]) == "" {
		cleaned = cleaned[:len(cleaned)-1]
	}

	return strings.Join(cleaned, "\n")
}

// Truncate shortens text to at most maxQuestionLen characters.
func (rf *ResponseFormatter) Truncate(text string) string {
	if utf8.RuneCountInString(text) <= rf.maxQuestionLen {
		return text
	}
	runes := []rune(text)
	return string(runes[:rf.maxQuestionLen]) + "..."
}

// FormatAnswer renders the question and its short answer in lang.
func (rf *ResponseFormatter) FormatAnswer(question, answer, lang string) string {
	return fmt.Sprintf("**%s** %s\n\n**%s**\n%s\n\n— NEET AI Bot",
		i18n.Get(lang, i18n.QuestionLabel),
		rf.Truncate(rf.Format(question)),
		i18n.Get(lang, i18n.AnswerLabel),
		rf.Format(answer))
}

func formatStats(s *storage.Stats, uptime time.Duration) string {
	return fmt.Sprintf(`📊 **Bot Statistics**

👥 Total Users: %d
🏘 Total Groups: %d
❓ Total Queries: %d
🔥 Daily Active Users: %d
⏱ Uptime: %s`, s.TotalUsers, s.TotalGroups, s.TotalQueries, s.DailyActiveUsers, formatUptime(uptime))
}

// formatUptime renders d as "2d 3h 15m".
func formatUptime(d time.Duration) string {
	d = d.Truncate(time.Minute)
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	return fmt.Sprintf("%dd %dh %dm", days, hours, int(d/time.Minute))
}

func formatAdminList(ownerID int64, admins []*storage.Admin) string {
	var sb strings.Builder
	sb.WriteString("👑 **Bot Admins**\n\n")
	if ownerID != 0 {
		fmt.Fprintf(&sb, "Owner: `%d`\n\n", ownerID)
	}
	if len(admins) == 0 {
		sb.WriteString("No admins promoted yet.")
		return sb.String()
	}
	for i, a := range admins {
		name := a.FirstName
		if a.Username != "" {
			name = "@" + a.Username
		}
		if name == "" {
			name = "Unknown"
		}
		fmt.Fprintf(&sb, "%d. %s (`%d`)\n", i+1, name, a.UserID)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatGroupList(groups []*storage.Group) string {
	if len(groups) == 0 {
		return "🏘 Bot अभी किसी group में नहीं है।"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🏘 **Groups (%d)**\n\n", len(groups))
	for i, g := range groups {
		mode := "🔔"
		if !g.ChatOn {
			mode = "🔕"
		}
		title := g.Title
		if g.Username != "" {
			title += " (@" + g.Username + ")"
		}
		fmt.Fprintf(&sb, "%d. %s %s `%d`\n", i+1, mode, title, g.ID)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatBroadcastStart(total int) string {
	return fmt.Sprintf("📢 Broadcast शुरू हो रहा है...\n\nTotal recipients: %d", total)
}

func formatBroadcastProgress(s broadcast.Snapshot) string {
	return fmt.Sprintf("📢 Broadcasting...\n\nProgress: %d/%d\n✅ Success: %d\n❌ Failed: %d",
		s.Processed, s.Total, s.Succeeded, s.Failed)
}

func formatBroadcastReport(r broadcast.Report, botUsername string) string {
	text := fmt.Sprintf("✅ **Broadcast Complete!**\n\n📊 Total: %d\n✅ Success: %d\n❌ Failed: %d",
		r.Total, r.Succeeded, r.Failed)
	if botUsername != "" {
		text += "\n\n— @" + botUsername
	}
	return text
}

func helpText(admin, owner bool) string {
	var sb strings.Builder
	sb.WriteString(`📚 **NEET AI Bot - Help**

**User Commands:**
/start - Bot शुरू करें
/help - यह message
/lang - भाषा बदलें

**Group Commands:**
/sol - किसी सवाल को reply करके जवाब पाएं
/chaton - Auto-reply चालू करें (group admins)
/chatoff - Auto-reply बंद करें (group admins)
/stats - Bot statistics`)

	if admin {
		sb.WriteString(`

**Admin Commands:**
/broadcast - किसी message को reply करके सबको भेजें
/adminlist - Admins की list
/grouplist - Groups की list
/refresh - Bot refresh करें
/fjoin - Force-join chat जोड़ें
/removefjoin - Force-join chat हटाएं`)
	}
	if owner {
		sb.WriteString(`

**Owner Commands:**
/promote <user_id> - Admin बनाएं
/remove <user_id> - Admin हटाएं
/dumpdb - Database download करें`)
	}
	return sb.String()
}
