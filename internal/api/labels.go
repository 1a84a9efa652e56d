package api

import (
	"egx-trading-bot/internal/paper"
	"egx-trading-bot/internal/signal"
)

// Arabic display labels for the dashboard. The core keeps canonical
// English identifiers; translation happens only at this boundary.

var statusLabels = map[paper.Status]string{
	paper.StatusOpen:         "مفتوحة",
	paper.StatusClosedProfit: "مغلقة بربح",
	paper.StatusClosedLoss:   "مغلقة بخسارة",
	paper.StatusClosedManual: "مغلقة يدوياً",
}

var directionLabels = map[paper.Direction]string{
	paper.Long:  "شراء",
	paper.Short: "بيع",
}

var signalLabels = map[signal.Direction]string{
	signal.StrongBuy:  "شراء قوي",
	signal.Buy:        "شراء",
	signal.Hold:       "احتفظ",
	signal.Sell:       "بيع",
	signal.StrongSell: "بيع قوي",
}

func statusLabel(s paper.Status) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

func directionLabel(d paper.Direction) string {
	if label, ok := directionLabels[d]; ok {
		return label
	}
	return string(d)
}

func signalLabel(d signal.Direction) string {
	if label, ok := signalLabels[d]; ok {
		return label
	}
	return string(d)
}
