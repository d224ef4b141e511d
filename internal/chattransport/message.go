package chattransport

// Message is the (text, interactive markup) pair every formatter produces.
type Message struct {
	Text   string  `json:"text"`
	Markup *Markup `json:"reply_markup,omitempty"`
}

type Markup struct {
	InlineKeyboard [][]Button `json:"inline_keyboard"`
}

type Button struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}

// Row is a convenience for building single-row keyboards.
func Row(buttons ...Button) []Button {
	return buttons
}

func Keyboard(rows ...[]Button) *Markup {
	return &Markup{InlineKeyboard: rows}
}
