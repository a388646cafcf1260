// inspect dumps a trained model's shortlist and factor spec for manual
// inspection:
//
//	go run ./internal/cmd -model corpus.fsm -out vocab.txt
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/awee-ai/go-segmenter/model"
)

func main() {
	modelPath := flag.String("model", "", "model file to inspect (.fsm)")
	outPath := flag.String("out", "", "output file (default stdout)")
	flag.Parse()

	if *modelPath == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	m, err := model.Load(*modelPath)
	if err != nil {
		log.Fatalf("error loading model: %v", err)
	}

	var out io.Writer = os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Fatalf("error creating output: %v", err)
		}
		defer f.Close()
		out = f
	}

	w := bufio.NewWriter(out)
	defer w.Flush()

	fmt.Fprintf(w, "# shortlist (%d entries)\n", len(m.Shortlist))
	for i, lemma := range m.Shortlist {
		fmt.Fprintf(w, "%6d %s\n", i, lemma)
	}
	fmt.Fprintf(w, "\n# factor spec\n%s", m.FactorSpec)
}
