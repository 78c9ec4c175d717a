package notifier

import (
	"fmt"

	"OmniTrade/internal/model"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	textmsg "golang.org/x/text/message"
)

var printer = textmsg.NewPrinter(language.English)

// FormatTrigger builds the title and message for a triggered alert.
func FormatTrigger(a *model.PriceAlert, price decimal.Decimal, exchange string) (title, message string) {
	title = "OmniTrade Alert: " + a.Symbol
	message = fmt.Sprintf("%s is %s %s\nCurrent price: %s on %s",
		a.Symbol, a.Condition, FormatPrice(a.TargetPrice), FormatPrice(price), exchange)
	return title, message
}

// FormatTest builds the message sent by a manual channel test.
func FormatTest(channels []string) (title, message string) {
	return "OmniTrade Test", printer.Sprintf("Test notification for %d channel(s): %v", len(channels), channels)
}

// FormatPrice renders "$50,000.00". Sub-dollar prices keep their full precision.
func FormatPrice(p decimal.Decimal) string {
	if p.Abs().LessThan(decimal.NewFromInt(1)) {
		return "$" + p.String()
	}
	return printer.Sprintf("$%.2f", p.InexactFloat64())
}
