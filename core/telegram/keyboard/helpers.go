// Package keyboard builds reply keyboards for choice-list prompts.
package keyboard

import tele "gopkg.in/telebot.v4"

// RemoveKeyboard returns a markup that hides any previously shown keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// ReplyButtons builds a reply keyboard from rows of text.
func ReplyButtons(rows ...[]string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	var kb []tele.Row
	for _, row := range rows {
		var buttons []tele.Btn
		for _, label := range row {
			buttons = append(buttons, markup.Text(label))
		}
		kb = append(kb, markup.Row(buttons...))
	}
	markup.Reply(kb...)
	return markup
}

// ChunkLabels splits a flat list of labels into rows with up to n labels per
// row. If n <= 1, every label gets its own row.
func ChunkLabels(labels []string, n int) [][]string {
	if n <= 1 {
		out := make([][]string, 0, len(labels))
		for _, l := range labels {
			out = append(out, []string{l})
		}
		return out
	}
	var rows [][]string
	for i := 0; i < len(labels); i += n {
		end := i + n
		if end > len(labels) {
			end = len(labels)
		}
		rows = append(rows, labels[i:end])
	}
	return rows
}

// ChoiceList renders an ordered set of choices as a reply keyboard, or hides
// the keyboard when the list is empty.
func ChoiceList(choices []string, perRow int) *tele.ReplyMarkup {
	if len(choices) == 0 {
		return RemoveKeyboard()
	}
	return ReplyButtons(ChunkLabels(choices, perRow)...)
}
