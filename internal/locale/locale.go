// Package locale holds the bot's localized copy and inline keyboards.
// Supported languages: Uzbek (default), Russian, English.
package locale

// Language tags as stored per user and carried in callback data.
const (
	LangUz = "uz"
	LangRu = "ru"
	LangEn = "en"
)

// Catalog is the set of localized strings for one language.
type Catalog struct {
	Greeting         string
	ChooseLanguage   string
	LanguageChosen   string
	Thinking         string
	NewChatStarted   string
	NewChatButton    string
	Help             string
	SomethingWrong   string
	Transcribing     string
	ReadingDocument  string
	ReadingPhoto     string
	PhotoUnsupported string
	EmptyDocument    string
}

var catalogs = map[string]Catalog{
	LangUz: {
		Greeting:         "Assalomu alaykum! Men Bilag'onman, sizning sun'iy intellekt yordamchingiz. Menga istalgan savolingizni yozing!",
		ChooseLanguage:   "Tilni tanlang:",
		LanguageChosen:   "Til muvaffaqiyatli o'zgartirildi!",
		Thinking:         "O'ylayapman...",
		NewChatStarted:   "Siz muvaffaqiyatli yangi suhbat boshladingiz!",
		NewChatButton:    "\U0001F4AC Yangi suhbat \U0001F4AC",
		Help:             "Menga matn, ovozli xabar, rasm yoki hujjat yuboring, men javob beraman. Buyruqlar: /start, /help, /language, /new",
		SomethingWrong:   "Nimadir xato ketdi! Yangi suhbat boshlashga harakat qiling \U0001F447",
		Transcribing:     "Ovozli xabaringizni tinglayapman...",
		ReadingDocument:  "Hujjatingizni o'qiyapman...",
		ReadingPhoto:     "Rasmingizni ko'rib chiqyapman...",
		PhotoUnsupported: "Kechirasiz, hozircha rasmlardagi matnni o'qiy olmayman.",
		EmptyDocument:    "Hujjatdan matn topilmadi.",
	},
	LangRu: {
		Greeting:         "Здравствуйте! Я Bilag'on, ваш ИИ-помощник. Напишите мне любой вопрос!",
		ChooseLanguage:   "Выберите язык:",
		LanguageChosen:   "Язык успешно изменён!",
		Thinking:         "Я думаю...",
		NewChatStarted:   "Вы успешно начали новый разговор!",
		NewChatButton:    "\U0001F4AC Новый разговор \U0001F4AC",
		Help:             "Отправьте мне текст, голосовое сообщение, фото или документ, и я отвечу. Команды: /start, /help, /language, /new",
		SomethingWrong:   "Что-то пошло не так! Попробуйте начать новый разговор \U0001F447",
		Transcribing:     "Слушаю ваше голосовое сообщение...",
		ReadingDocument:  "Читаю ваш документ...",
		ReadingPhoto:     "Рассматриваю ваше изображение...",
		PhotoUnsupported: "Извините, пока я не умею читать текст с изображений.",
		EmptyDocument:    "В документе не найден текст.",
	},
	LangEn: {
		Greeting:         "Hello! I am Bilag'on, your AI assistant. Ask me anything!",
		ChooseLanguage:   "Choose language:",
		LanguageChosen:   "Language changed successfully!",
		Thinking:         "I am thinking...",
		NewChatStarted:   "You have successfully started a new conversation!",
		NewChatButton:    "\U0001F4AC New Chat \U0001F4AC",
		Help:             "Send me text, a voice message, a photo or a document and I will answer. Commands: /start, /help, /language, /new",
		SomethingWrong:   "Something went wrong! Try starting a new conversation \U0001F447",
		Transcribing:     "Listening to your voice message...",
		ReadingDocument:  "Reading your document...",
		ReadingPhoto:     "Looking at your image...",
		PhotoUnsupported: "Sorry, I cannot read text from images yet.",
		EmptyDocument:    "No text found in the document.",
	},
}

// For returns the catalog for lang, falling back to Uzbek.
func For(lang string) Catalog {
	if c, ok := catalogs[lang]; ok {
		return c
	}
	return catalogs[LangUz]
}

// Supported reports whether lang is a known language tag.
func Supported(lang string) bool {
	_, ok := catalogs[lang]
	return ok
}
