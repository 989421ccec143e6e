package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"filebot/internal/messages"
)

const (
	callbackVerify        = "verify_sub"
	callbackAnswerSupport = "answer_support_"
)

func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(messages.ButtonUpload),
			tgbotapi.NewKeyboardButton(messages.ButtonMyFiles),
			tgbotapi.NewKeyboardButton(messages.ButtonGetFile),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(messages.ButtonCaption),
			tgbotapi.NewKeyboardButton(messages.ButtonDelete),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(messages.ButtonRedeem),
			tgbotapi.NewKeyboardButton(messages.ButtonProfile),
			tgbotapi.NewKeyboardButton(messages.ButtonSupport),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func adminKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(messages.ButtonStats),
			tgbotapi.NewKeyboardButton(messages.ButtonBotState),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(messages.ButtonBan),
			tgbotapi.NewKeyboardButton(messages.ButtonUnban),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(messages.ButtonBroadcast),
			tgbotapi.NewKeyboardButton(messages.ButtonForwardBroadcast),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(messages.ButtonCreateCode),
			tgbotapi.NewKeyboardButton(messages.ButtonCreatePool),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(messages.ButtonBack),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func backKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(messages.ButtonBack)),
	)
	kb.ResizeKeyboard = true
	return kb
}

// joinKeyboard links public channels and offers a Verify button
func joinKeyboard(channels []string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, channel := range channels {
		if name, ok := strings.CutPrefix(channel, "@"); ok {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL(messages.ButtonJoin+" "+channel, "https://t.me/"+name),
			))
		}
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(messages.ButtonVerify, callbackVerify),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func answerKeyboard(userID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(messages.ButtonAnswer, fmt.Sprintf("%s%d", callbackAnswerSupport, userID)),
		),
	)
}
