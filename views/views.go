// Package views holds the HTML pages and their template helpers.
package views

import (
	"embed"
	"html/template"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed templates/*.html
var files embed.FS

var printer = message.NewPrinter(language.English)

// Templates parses every page. Each page is addressed by its file name.
func Templates() *template.Template {
	return template.Must(template.New("").
		Funcs(template.FuncMap{"usd": USD}).
		ParseFS(files, "templates/*.html"))
}

// USD formats an amount as dollars, e.g. $1,234.56.
func USD(v interface{}) string {
	var f float64
	switch n := v.(type) {
	case decimal.Decimal:
		f = n.Round(2).InexactFloat64()
	case float64:
		f = n
	case int64:
		f = float64(n)
	case int:
		f = float64(n)
	default:
		return "$0.00"
	}
	return printer.Sprintf("$%.2f", f)
}
