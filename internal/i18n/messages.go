// Package i18n holds the user-facing texts in every supported language.
package i18n

import (
	"fmt"
	"strings"
)

type Key string

const (
	Start           Key = "start"
	QuestionTooLong Key = "question_too_long"
	FindingAnswer   Key = "finding_answer"
	ErrorOccurred   Key = "error_occurred"
	ProcessingImage Key = "processing_image"
	ImageError      Key = "image_error"
	QuestionLabel   Key = "question"
	AnswerLabel     Key = "answer"
	LanguageChanged Key = "language_changed"
	ForceJoin       Key = "force_join"
	RateLimited     Key = "rate_limited"
)

const (
	Hindi    = "hindi"
	English  = "english"
	Hinglish = "hinglish"

	DefaultLanguage = Hindi
)

// Languages lists the supported languages in the order they are offered.
var Languages = []string{Hindi, English, Hinglish}

var messages = map[string]map[Key]string{
	Hindi: {
		Start: `🎓 **NEET AI Bot में आपका स्वागत है!**

मैं आपके NEET/JEE के सवालों का जवाब दे सकता हूं।

**📚 Features:**
• किसी भी Physics, Chemistry, Biology या Math के सवाल का तुरंत जवाब
• Short answer + विस्तृत समाधान की वेबसाइट लिंक
• Group में भी काम करता हूं - किसी message को reply करके /sol टाइप करें
• 24/7 Available

**💡 कैसे इस्तेमाल करें:**
1️⃣ बस अपना सवाल टाइप करें
2️⃣ या सवाल की फोटो भेजें
3️⃣ मैं तुरंत short answer दूंगा + detailed solution का link

Language बदलने के लिए /lang टाइप करें
नीचे के बटन से मुझे अपने ग्रुप में add करें! 👇

— NEET AI Bot ✨`,
		QuestionTooLong: "❌ सवाल बहुत लंबा है! कृपया %d characters से कम में लिखें।",
		FindingAnswer:   "🔍 जवाब ढूंढ रहा हूं...",
		ErrorOccurred:   "❌ क्षमा करें, कुछ गड़बड़ हुई। कृपया फिर से try करें।",
		ProcessingImage: "📸 इमेज प्रोसेस कर रहा हूं...",
		ImageError:      "❌ इमेज प्रोसेस नहीं हो सकी। Text में सवाल भेजें।",
		QuestionLabel:   "❓ सवाल:",
		AnswerLabel:     "✅ जवाब:",
		LanguageChanged: "✅ भाषा बदल दी गई! अब सभी messages हिंदी में होंगे।",
		ForceJoin: `🔒 **रुकिए %s!**

Bot का इस्तेमाल करने के लिए आपको हमारे channel/group में join करना होगा।

**📢 Group:** %s

नीचे के बटन से join करें और फिर वापस आएं! 👇

— NEET AI Bot`,
		RateLimited: "⏳ बहुत ज़्यादा सवाल! थोड़ी देर बाद फिर से try करें।",
	},
	English: {
		Start: `🎓 **Welcome to NEET AI Bot!**

I can answer your NEET/JEE questions instantly.

**📚 Features:**
• Instant answers to Physics, Chemistry, Biology, and Math questions
• Short answer + detailed solution website link
• Works in groups too - reply to any message with /sol
• 24/7 Available

**💡 How to use:**
1️⃣ Just type your question
2️⃣ Or send a photo of your question
3️⃣ I'll instantly give you a short answer + detailed solution link

Type /lang to change language
Add me to your group using the button below! 👇

— NEET AI Bot ✨`,
		QuestionTooLong: "❌ Question is too long! Please keep it under %d characters.",
		FindingAnswer:   "🔍 Finding answer...",
		ErrorOccurred:   "❌ Sorry, something went wrong. Please try again.",
		ProcessingImage: "📸 Processing image...",
		ImageError:      "❌ Could not process image. Please send question as text.",
		QuestionLabel:   "❓ Question:",
		AnswerLabel:     "✅ Answer:",
		LanguageChanged: "✅ Language changed! All messages will now be in English.",
		ForceJoin: `🔒 **Wait %s!**

You need to join our channel/group to use this bot.

**📢 Group:** %s

Join using the button below and come back! 👇

— NEET AI Bot`,
		RateLimited: "⏳ Too many questions! Please try again in a moment.",
	},
	Hinglish: {
		Start: `🎓 **NEET AI Bot mein aapka swagat hai!**

Main aapke NEET/JEE ke sawaalon ka jawab de sakta hoon.

**📚 Features:**
• Kisi bhi Physics, Chemistry, Biology ya Math ke sawal ka turant jawab
• Short answer + detailed solution ki website link
• Group mein bhi kaam karta hoon - kisi message ko reply karke /sol type karein
• 24/7 Available

**💡 Kaise use karein:**
1️⃣ Bas apna sawal type karein
2️⃣ Ya sawal ki photo bhejein
3️⃣ Main turant short answer dunga + detailed solution ka link

Language change karne ke liye /lang type karein
Neeche ke button se mujhe apne group mein add karein! 👇

— NEET AI Bot ✨`,
		QuestionTooLong: "❌ Sawal bahut lamba hai! Kripya %d characters se kam mein likhein.",
		FindingAnswer:   "🔍 Jawab dhoond raha hoon...",
		ErrorOccurred:   "❌ Sorry, kuch gadbad hui. Please fir se try karein.",
		ProcessingImage: "📸 Image process kar raha hoon...",
		ImageError:      "❌ Image process nahi ho saki. Text mein sawal bhejein.",
		QuestionLabel:   "❓ Sawal:",
		AnswerLabel:     "✅ Jawab:",
		LanguageChanged: "✅ Language change ho gayi! Ab sab messages Hinglish mein honge.",
		ForceJoin: `🔒 **Rukiye %s!**

Bot use karne ke liye aapko hamare channel/group mein join karna hoga.

**📢 Group:** %s

Neeche ke button se join karein aur fir wapas aayein! 👇

— NEET AI Bot`,
		RateLimited: "⏳ Bahut zyada sawal! Thodi der baad fir se try karein.",
	},
}

// Supported reports whether lang is one of Languages.
func Supported(lang string) bool {
	_, ok := messages[lang]
	return ok
}

// Normalize maps unknown or empty languages to DefaultLanguage.
func Normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if Supported(lang) {
		return lang
	}
	return DefaultLanguage
}

// Get returns the text for key in lang, falling back to DefaultLanguage.
// Extra args are applied with fmt.Sprintf.
func Get(lang string, key Key, args ...any) string {
	text, ok := messages[Normalize(lang)][key]
	if !ok {
		text = messages[DefaultLanguage][key]
	}
	if len(args) > 0 {
		return fmt.Sprintf(text, args...)
	}
	return text
}

// ForceJoinPrompt is the gate prompt asking name to join the chat titled title.
func ForceJoinPrompt(lang, name, title string) string {
	if name == "" {
		name = "दोस्त"
	}
	if title == "" {
		title = "Required Group"
	}
	return Get(lang, ForceJoin, name, title)
}

// Title renders a language for display ("hindi" -> "Hindi").
func Title(lang string) string {
	if lang == "" {
		return lang
	}
	return strings.ToUpper(lang[:1]) + lang[1:]
}
