package main

import (
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/turbekoff/deccalc/pkg/calculator"
)

var ErrUnsupported = errors.New("unsupported input format")

// Callback data sent by the keypad buttons.
const (
	KeyClear = "AC"
	KeySign  = "T"
	KeyPoint = "."
	KeyAdd   = "+"
	KeySub   = "-"
	KeyMul   = "*"
	KeyDiv   = "/"
	KeyEqual = "="
)

var botKeyboard = tgbotapi.NewInlineKeyboardMarkup(
	tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("AC", KeyClear),
		tgbotapi.NewInlineKeyboardButtonData("±", KeySign),
		tgbotapi.NewInlineKeyboardButtonData("÷", KeyDiv),
	),
	tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("7", "7"),
		tgbotapi.NewInlineKeyboardButtonData("8", "8"),
		tgbotapi.NewInlineKeyboardButtonData("9", "9"),
		tgbotapi.NewInlineKeyboardButtonData("×", KeyMul),
	),
	tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("4", "4"),
		tgbotapi.NewInlineKeyboardButtonData("5", "5"),
		tgbotapi.NewInlineKeyboardButtonData("6", "6"),
		tgbotapi.NewInlineKeyboardButtonData("-", KeySub),
	),
	tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("1", "1"),
		tgbotapi.NewInlineKeyboardButtonData("2", "2"),
		tgbotapi.NewInlineKeyboardButtonData("3", "3"),
		tgbotapi.NewInlineKeyboardButtonData("+", KeyAdd),
	),
	tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("0", "0"),
		tgbotapi.NewInlineKeyboardButtonData(".", KeyPoint),
		tgbotapi.NewInlineKeyboardButtonData("=", KeyEqual),
	),
)

// ApplyKey forwards one keypad press to the engine.
func ApplyKey(engine *calculator.Engine, key string) error {
	switch key {
	case KeyClear:
		engine.Clear()
	case KeySign:
		engine.ChangeSign()
	case KeyPoint:
		engine.Point()
	case KeyAdd:
		engine.Add()
	case KeySub:
		engine.Subtract()
	case KeyMul:
		engine.Multiply()
	case KeyDiv:
		engine.Divide()
	case KeyEqual:
		engine.Equals()
	default:
		if len(key) != 1 || key[0] < '0' || key[0] > '9' {
			return ErrUnsupported
		}
		engine.DigitIn(key[0])
	}
	return nil
}
