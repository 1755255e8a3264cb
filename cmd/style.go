package main

import (
	"net"

	"github.com/pterm/pterm"

	"github.com/luca-patrignani/proof-of-play/config"
	"github.com/luca-patrignani/proof-of-play/dispatch"
	"github.com/luca-patrignani/proof-of-play/domain/pop"
	"github.com/luca-patrignani/proof-of-play/ledger"
)

func eventLine(b ledger.Block) string {
	e := b.Event
	switch e.Kind {
	case pop.EventPlayVerified:
		return pterm.Sprintfln("#%d %s minted %s TT (entropy %d)",
			b.Index, pterm.LightGreen("play verified"), pterm.LightCyan(e.Minted), e.Entropy)
	case pop.EventInvalidPlay:
		return pterm.Sprintfln("#%d %s: %s", b.Index, pterm.LightRed("invalid play"), e.Reason)
	default:
		return pterm.Sprintfln("#%d %s", b.Index, e.Kind)
	}
}

func getReceiptPanel(r dispatch.Receipt) pterm.Panel {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	info := pterm.Sprintfln("tx:     %s", r.TxHash)
	info += pterm.Sprintfln("call:   %s", r.Call)
	if r.Caller != "" {
		info += pterm.Sprintfln("caller: %s", r.Caller)
	}
	for _, b := range r.Blocks {
		info += eventLine(b)
	}
	title := pterm.LightGreen("|RECEIPT|")
	if r.Error != "" {
		info += pterm.Sprintfln("error:  %s", pterm.LightRed(r.Error))
		title = pterm.LightRed("|REJECTED|")
	}
	return pterm.Panel{Data: pbox.WithTitle(title).WithTitleTopCenter().Sprint(info)}
}

func printReceipt(r dispatch.Receipt) {
	_ = pterm.DefaultPanel.WithPanels(pterm.Panels{{getReceiptPanel(r)}}).Render()
}

func printBalance(account pop.AccountID, b pop.Balance) {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	info := pterm.Sprintfln("%s\n%s TT", account, pterm.LightCyan(b))
	pterm.Println(pbox.WithTitle(pterm.LightYellow("|BALANCE|")).WithTitleTopCenter().Sprint(info))
}

func printNodeInfo(cfg *config.Config, h *pop.Handler, addr string) {
	scheme := "http"
	if cfg.TLS {
		scheme = "https"
	}
	_, port, _ := net.SplitHostPort(addr)
	_ = pterm.DefaultTable.WithData(pterm.TableData{
		{"Setting", "Value"},
		{"Listening", addr},
		{"URL", scheme + "://localhost:" + port},
		{"Store", string(cfg.Store)},
		{"Min entropy", pterm.Sprint(h.MinEntropy())},
		{"Mint amount", pterm.Sprint(h.MintAmount())},
	}).WithHasHeader().Render()
}
