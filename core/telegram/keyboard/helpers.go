// Package keyboard builds inline keyboards from plain button descriptions.
package keyboard

import tele "gopkg.in/telebot.v4"

// Button is one inline button. Unique is the callback key the router
// dispatches on; Data is an optional payload after it.
type Button struct {
	Text   string
	Unique string
	Data   string
}

// Column stacks buttons one per row. No buttons yields no markup.
func Column(buttons ...Button) *tele.ReplyMarkup {
	if len(buttons) == 0 {
		return nil
	}
	markup := &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, markup.Row(markup.Data(b.Text, b.Unique, b.Data)))
	}
	markup.Inline(rows...)
	return markup
}
