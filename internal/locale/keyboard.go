package locale

import "github.com/javoxirone/bilagon-ai-bot/internal/telegram"

// Callback data values understood by the update router.
const (
	CallbackLangUz  = "lang_uz"
	CallbackLangRu  = "lang_ru"
	CallbackLangEn  = "lang_en"
	CallbackNewChat = "new_chat"
)

// LanguageKeyboard is the language picker shown by /start and /language.
func LanguageKeyboard() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{
				{Text: "\U0001F1FA\U0001F1FF O'zbekcha", CallbackData: CallbackLangUz},
			},
			{
				{Text: "\U0001F1F7\U0001F1FA Русский", CallbackData: CallbackLangRu},
			},
			{
				{Text: "\U0001F1FA\U0001F1F8 English", CallbackData: CallbackLangEn},
			},
		},
	}
}

// NewChatKeyboard is attached to the final slice of every answer so the
// user can reset the conversation with one tap.
func NewChatKeyboard(lang string) *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{
				{Text: For(lang).NewChatButton, CallbackData: CallbackNewChat},
			},
		},
	}
}

// CallbackLanguage maps callback data to a language tag. It returns
// "" when data is not a language callback.
func CallbackLanguage(data string) string {
	switch data {
	case CallbackLangUz:
		return LangUz
	case CallbackLangRu:
		return LangRu
	case CallbackLangEn:
		return LangEn
	}
	return ""
}
