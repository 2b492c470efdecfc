package bot

// User-facing texts, kept in Uzbek like the menu labels.
const (
	replyGreeting = "Salom! Men kurs va ob-havo botiman.\nKerakli tugmani tanlang 👇"
	replyDefault  = "Kerakli tugmani tanlang 👇"
	replyHelp     = "💵 Kursni ko‘rsat – joriy kurslarni ko‘rsatadi\n" +
		"🔄 USD → UZS / 💶 EUR → UZS – chet el valyutasini so‘mga aylantiradi\n" +
		"🔁 UZS → USD / 💶 UZS → EUR – so‘mni chet el valyutasiga aylantiradi\n" +
		"🔔 Kurs obunasi – har kuni kursni avtomatik yuborib turadi\n" +
		"🌤 Ob-havo – joylashuvingiz bo‘yicha prognoz\n" +
		"🌦 Ob-havo obunasi – har kuni ob-havo prognozini yuborib turadi"

	replyRateUnavailable = "Kurs hozircha olinmadi."
	replyAskAmount       = "Miqdorni raqam bilan kiriting."
	replyBadAmount       = "Iltimos, faqat musbat raqam kiriting."

	replyDigestOn  = "✅ Kurs obunasi yoqildi. Sizga har kuni kurs yuboriladi."
	replyDigestOff = "⛔ Kurs obunasi o‘chirildi."

	replyAskLocation        = "Joylashuvingizni yuboring 👇"
	replyAwaitingLocation   = "Joylashuv kutilmoqda. Pastdagi tugma orqali yuboring yoki ❌ Bekor qilish."
	replyWeatherSubscribed  = "✅ Ob-havo obunasi yoqildi. Har kuni prognoz yuboriladi."
	replyWeatherUnsub       = "⛔ Ob-havo obunasi o‘chirildi."
	replyWeatherNotSet      = "Ob-havo xizmati sozlanmagan."
	replyUpstreamApology    = "Kechirasiz, hozir ma'lumot olib bo‘lmadi. Keyinroq urinib ko‘ring."
	replyCancelled          = "Bekor qilindi."
	replySubscriptionFailed = "Kechirasiz, obunani saqlab bo‘lmadi. Keyinroq urinib ko‘ring."
)
