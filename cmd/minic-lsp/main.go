package main

import (
	"os"

	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"minic/internal/diag"
	"minic/internal/lsp"
)

const lsName = "minic"

var version = "0.1.0"

func main() {
	diag.Configure(os.Getenv("MINIC_LSP_VERBOSE") != "")
	log := diag.Logger("minic.lsp")

	h := lsp.NewHandler()
	handler := protocol.Handler{
		Initialize:            h.Initialize,
		Initialized:           h.Initialized,
		Shutdown:              h.Shutdown,
		TextDocumentDidOpen:   h.TextDocumentDidOpen,
		TextDocumentDidChange: h.TextDocumentDidChange,
		TextDocumentDidSave:   h.TextDocumentDidSave,
		TextDocumentDidClose:  h.TextDocumentDidClose,
		TextDocumentHover:     h.TextDocumentHover,
	}

	s := server.NewServer(&handler, lsName, false)
	log.Info("starting", "version", version)
	if err := s.RunStdio(); err != nil {
		log.Error(err, "server exited")
		os.Exit(1)
	}
}
