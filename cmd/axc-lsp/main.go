// SPDX-License-Identifier: Apache-2.0
package main

import (
	"flag"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"axc/internal/driver"
	"axc/internal/lsp"
)

const lsName = "axc"

var (
	version = "0.1.0"
	handler protocol.Handler
)

func main() {
	optimize := flag.Bool("O", false, "run the dataflow optimization pipeline before lowering")
	verbosity := flag.Int("v", 1, "log verbosity")
	flag.Parse()

	commonlog.Configure(*verbosity, nil)
	log := commonlog.GetLogger("axc.lsp")

	axcHandler := lsp.NewHandler(driver.Options{Optimize: *optimize})

	handler = protocol.Handler{
		Initialize:                     axcHandler.Initialize,
		Initialized:                    axcHandler.Initialized,
		Shutdown:                       axcHandler.Shutdown,
		SetTrace:                       axcHandler.SetTrace,
		TextDocumentDidOpen:            axcHandler.TextDocumentDidOpen,
		TextDocumentDidClose:           axcHandler.TextDocumentDidClose,
		TextDocumentDidChange:          axcHandler.TextDocumentDidChange,
		TextDocumentHover:              axcHandler.TextDocumentHover,
		TextDocumentSemanticTokensFull: axcHandler.TextDocumentSemanticTokensFull,
	}

	// debug=false keeps glsp's own message tracing out of the log
	s := server.NewServer(&handler, lsName, false)

	log.Infof("starting %s language server %s", lsName, version)

	if err := s.RunStdio(); err != nil {
		log.Errorf("language server stopped: %s", err)
		os.Exit(1)
	}
}
