package notifier

import (
	"fmt"
	"html"
	"io"
	"math"
	"math/big"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"StochWatch/internal/model"
)

// NA is shown in place of an undefined value.
const NA = "N/A"

// TableHeaders are the column titles shared by every view.
var TableHeaders = []string{"Symbol", "Price", "Stoch (14)", "ΔStoch (Day)"}

// fixed2 rounds the exact binary value of f half-to-even at two decimals,
// the same digits "%.2f" prints. Negative inputs keep their sign at zero.
func fixed2(f float64) string {
	// 1074 fractional digits hold any float64 exactly.
	exact, err := decimal.NewFromString(new(big.Float).SetFloat64(f).Text('f', 1074))
	if err != nil {
		return fmt.Sprintf("%.2f", f)
	}
	s := exact.RoundBank(2).StringFixed(2)
	if math.Signbit(f) && !strings.HasPrefix(s, "-") {
		s = "-" + s
	}
	return s
}

// FormatValue renders v with two decimals, or N/A.
func FormatValue(v model.Value) string {
	f, ok := v.Get()
	if !ok {
		return NA
	}
	return fixed2(f)
}

// FormatDelta renders v with two decimals and an explicit sign, or N/A.
func FormatDelta(v model.Value) string {
	f, ok := v.Get()
	if !ok {
		return NA
	}
	s := fixed2(f)
	if !strings.HasPrefix(s, "-") {
		s = "+" + s
	}
	return s
}

// FormatRow returns the display cells for one snapshot.
func FormatRow(s model.Snapshot) []string {
	return []string{s.Symbol, FormatValue(s.Close), FormatValue(s.SlowK), FormatDelta(s.SlowKDelta)}
}

// WriteTable prints snapshots as an aligned text table.
func WriteTable(w io.Writer, snaps []model.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, strings.Join(TableHeaders, "\t")+"\t")
	for _, s := range snaps {
		fmt.Fprintln(tw, strings.Join(FormatRow(s), "\t")+"\t")
	}
	return tw.Flush()
}

// FormatReport formats the watchlist into a Telegram HTML message.
func FormatReport(snaps []model.Snapshot) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>Slow Stochastic (14,3,3)</b> | %s\n\n", time.Now().Format("2006-01-02")))
	if len(snaps) == 0 {
		b.WriteString("Watchlist is empty. Use /add SYMBOL.")
		return b.String()
	}

	var table strings.Builder
	if err := WriteTable(&table, snaps); err != nil {
		return b.String()
	}
	b.WriteString("<pre>")
	b.WriteString(html.EscapeString(table.String()))
	b.WriteString("</pre>")

	var oversold, overbought []string
	for _, s := range snaps {
		k, ok := s.SlowK.Get()
		switch {
		case !ok:
		case k <= 20:
			oversold = append(oversold, s.Symbol)
		case k >= 80:
			overbought = append(overbought, s.Symbol)
		}
	}
	if len(oversold) > 0 {
		b.WriteString(fmt.Sprintf("\n🟢 Oversold (≤20): %s", strings.Join(oversold, ", ")))
	}
	if len(overbought) > 0 {
		b.WriteString(fmt.Sprintf("\n🔴 Overbought (≥80): %s", strings.Join(overbought, ", ")))
	}
	return b.String()
}

// FormatWatchlist lists the stored symbols.
func FormatWatchlist(symbols []string) string {
	if len(symbols) == 0 {
		return "Watchlist is empty."
	}
	return fmt.Sprintf("📋 Watchlist (%d): %s", len(symbols), strings.Join(symbols, ", "))
}
