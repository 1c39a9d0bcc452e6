package pipeline

import (
	"fmt"
	"strings"

	"github.com/dexsentry/dexsentry/internal/engine"
)

// FormatAlert renders a scored candidate into the signal message.
func FormatAlert(cand engine.ScoredCandidate) string {
	snap := cand.Snapshot

	var b strings.Builder
	fmt.Fprintf(&b, "🚨 NEW SIGNAL: %s\n\n", snap.BaseSymbol)
	fmt.Fprintf(&b, "Token: %s\n", shortAddress(snap.TokenAddress))
	fmt.Fprintf(&b, "Price: $%s\n", snap.PriceUSD.String())
	fmt.Fprintf(&b, "Liquidity: $%s\n", humanUSD(snap.LiquidityUSD))
	fmt.Fprintf(&b, "Volume 1h: $%s\n", humanUSD(snap.VolumeH1))
	if snap.FDV > 0 {
		fmt.Fprintf(&b, "FDV: $%s\n", humanUSD(snap.FDV))
	}
	fmt.Fprintf(&b, "\nComposite: %.1f\n", cand.Composite)
	fmt.Fprintf(&b, "Risk: %.0f/100\n", cand.Risk.Score)
	fmt.Fprintf(&b, "Rug probability: %.0f%%\n", cand.RugProb)

	if cand.Whale.Detected {
		b.WriteString("\n🐋 Whale activity:\n")
		for _, r := range cand.Whale.Reasons {
			fmt.Fprintf(&b, "  • %s\n", r)
		}
	}
	if len(cand.Risk.Reasons) > 0 {
		b.WriteString("\nRisk factors:\n")
		for _, r := range cand.Risk.Reasons {
			fmt.Fprintf(&b, "  • %s\n", r)
		}
	}
	return b.String()
}

func humanUSD(v float64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("%.2fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("%.1fK", v/1_000)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-6:]
}
