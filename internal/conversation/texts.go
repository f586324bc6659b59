package conversation

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/m3rciful/creatorbot/internal/challenge"
)

var numbers = message.NewPrinter(language.English)

const (
	welcomeText = "🎉 Welcome to the Content Creator Guide Bot! 🎉\n\n" +
		"I'm here to help you become a successful content creator. " +
		"Let's start by getting to know you better!"

	askHandleText = "Please share your main social media handle (e.g., @username)"

	askViralText = "Thanks! Now, could you share the link to your most viral content " +
		"and its view count? (Format: link, views)"

	guideText = `📚 Content Creator Guide 2025 📚

1. Finding Your Niche
- Identify your passions and expertise
- Research market demand
- Analyze competition
- Find your unique angle

2. Content Strategy
- Define your target audience
- Create content pillars
- Develop a consistent posting schedule
- Plan content themes and series

3. Content Creation Tips
- Focus on quality over quantity
- Use trending topics strategically
- Create shareable moments
- Optimize for each platform

4. Growth Strategies
- Engage with your community
- Collaborate with other creators
- Use platform-specific features
- Analyze and adapt based on metrics

Want to put this knowledge into practice? Start the %d-day challenge! 🎯`

	infoText = `🎯 %d-Day Createathon Challenge 🎯

Challenge Rules:
1. Create and post content every day for %d days
2. Share your content link and views daily
3. Get feedback and improvement suggestions
4. Track your growth journey

Ready to transform your content creation journey?`

	startedText = "🎉 Challenge started! Get ready for %d days of content creation!\n" +
		"I'll send you daily reminders to post your content."

	firstDayText = "Day %d/%d of your Createathon Challenge!\n\n" +
		"Please share today's content link and views count (Format: link, views)"

	nextDayText = "Day %d/%d of your Createathon Challenge!\n\n" +
		"Please share tomorrow's content link and views count when ready (Format: link, views)"

	alreadyEnrolledText = "You're already in the challenge! You're on day %d/%d.\n\n" +
		"Share today's content link and views count (Format: link, views)"

	readyText = "Whenever you're ready, start the challenge and track your growth! 🚀"

	handleEmptyText = "Your handle can't be empty. " + askHandleText

	formatHintText = "Please use the format: link, views (for example: https://example.com/post, 1500)"

	notEnrolledText = "Please start the challenge first!"

	weeklyChartCaption = "Your 7-day growth chart 📈"
	finalChartCaption  = "Your complete challenge growth chart 📈"
)

// Button labels.
const (
	labelShareHandle   = "Share Social Handle 📱"
	labelCreatorGuide  = "View Creator Guide 📚"
	labelChallengeInfo = "Start %d-Day Challenge 🎯"
	labelStartNow      = "Start Challenge Now! 🚀"
	labelStartAnother  = "Start Another Challenge 🔁"
)

// recommendation grades the viral content shared during onboarding.
func recommendation(views int64) string {
	switch {
	case views >= 10000:
		return "Your content shows high viral potential! Consider starting the challenge."
	case views >= 1000:
		return "Good start! The challenge can help you reach bigger audiences."
	default:
		return "Let's work on growing your audience through the challenge!"
	}
}

func progressText(u *challenge.Update) string {
	return fmt.Sprintf("✅ Day %d Update Recorded!\n\n"+
		"📈 Growth Rate: %.1f%%\n"+
		"📊 Total Posts: %d\n"+
		"🎯 Days Remaining: %d",
		u.Day, u.GrowthRate, u.TotalPosts, u.DaysRemaining)
}

func completionText(totalDays int, s *challenge.Summary) string {
	// Separators apply to view counts only; percentages stay plain.
	text := numbers.Sprintf("🎉 Congratulations on completing the %d-day challenge! 🎉\n\n"+
		"📊 Final Statistics:\n"+
		"- Total Views: %d\n"+
		"- Average Views: %.1f\n",
		totalDays, s.TotalViews, s.AverageViews)
	text += fmt.Sprintf("- Growth Rate: %.1f%%\n\n", s.GrowthRate)

	switch s.Tier {
	case challenge.TierOutstanding:
		return text + "🌟 Outstanding growth! You're ready for brand partnerships!"
	case challenge.TierGreat:
		return text + "💪 Great progress! Consider starting another challenge!"
	default:
		return text + "📈 Good effort! Let's analyze and improve your strategy!"
	}
}

// ReminderText is the daily nudge sent by the reminder worker.
func ReminderText(day, totalDays int) string {
	return fmt.Sprintf(firstDayText, day, totalDays)
}
