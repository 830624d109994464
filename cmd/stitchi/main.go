/*
Stitchi is an interactive shell over the incremental parsing/lexing core: it
loads a grammar file, lets the user type text into a document one
keystroke-worth of command at a time, and prints the document's parse
status after each edit.

Usage:

	stitchi [flags]

The flags are:

	-g, --grammar FILE
		Grammar file (TOML) to load as the document's base grammar. Defaults
		to "grammars/calc.toml".

	-d, --direct
		Force reading directly from stdin instead of GNU readline, the same
		escape hatch the ambient stack's other interactive tools use for
		non-tty input.

	-b, --database FILE
		sqlite file to persist documents to. Defaults to "stitch.db".

Once started, a line beginning with ":" is a shell command (":save [ID]"
with a generated ID printed back if one isn't given, ":load ID", ":undo",
":redo", ":box GRAMMAR", ":leave", ":quit"); any other line is inserted
into the document followed by a newline.
*/
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/dekarrin/stitch/internal/grammarfile"
	"github.com/dekarrin/stitch/internal/persist"

	"github.com/dekarrin/stitch/editor"
)

const (
	ExitSuccess = iota
	ExitInitError
	ExitRunError
)

var (
	returnCode  = ExitSuccess
	grammarFile = pflag.StringP("grammar", "g", "grammars/calc.toml", "grammar file to load as the document's base grammar")
	forceDirect = pflag.BoolP("direct", "d", false, "force reading directly from stdin instead of GNU readline")
	dbFile      = pflag.StringP("database", "b", "stitch.db", "sqlite file to persist documents to")
)

func main() {
	pflag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	gr, err := grammarfile.Load(*grammarFile)
	if err != nil {
		log.Error().Err(err).Str("file", *grammarFile).Msg("loading grammar")
		returnCode = ExitInitError
		os.Exit(returnCode)
	}

	store, err := persist.Open(*dbFile)
	if err != nil {
		log.Error().Err(err).Str("file", *dbFile).Msg("opening document store")
		returnCode = ExitInitError
		os.Exit(returnCode)
	}
	defer store.Close()

	grammars := map[string]*grammarfile.Grammar{gr.Name: gr}
	doc, err := editor.NewDocument(grammars, gr.Name)
	if err != nil {
		log.Error().Err(err).Msg("initializing document")
		returnCode = ExitInitError
		os.Exit(returnCode)
	}

	if err := run(doc, store, log, *forceDirect); err != nil {
		log.Error().Err(err).Msg("running session")
		returnCode = ExitRunError
	}
	os.Exit(returnCode)
}

func run(doc *editor.Document, store *persist.Store, log zerolog.Logger, direct bool) error {
	var rl *readline.Instance
	var err error
	useReadline := !direct
	if useReadline {
		rl, err = readline.NewEx(&readline.Config{Prompt: "stitch> "})
		if err != nil {
			return fmt.Errorf("initializing interactive input: %w", err)
		}
		defer rl.Close()
	}

	fmt.Println("stitchi: type text to insert it, or a : command (:help for a list)")

	for {
		var line string
		if useReadline {
			line, err = rl.Readline()
		} else {
			fmt.Print("stitch> ")
			line, err = readDirectLine(os.Stdin)
		}
		if err != nil {
			break
		}

		if strings.HasPrefix(line, ":") {
			quit := handleCommand(doc, store, log, line)
			if quit {
				break
			}
			continue
		}

		doc.Insert(line + "\n")
		fmt.Println(doc.LastStatusMessage())
	}

	return nil
}

func readDirectLine(f *os.File) (string, error) {
	var buf []byte
	b := make([]byte, 1)
	for {
		n, err := f.Read(b)
		if n > 0 {
			if b[0] == '\n' {
				break
			}
			buf = append(buf, b[0])
		}
		if err != nil {
			if len(buf) > 0 {
				return string(buf), nil
			}
			return "", err
		}
	}
	return string(buf), nil
}

// handleCommand runs a ":"-prefixed shell command, returning true if the
// session should end.
func handleCommand(doc *editor.Document, store *persist.Store, log zerolog.Logger, line string) bool {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case ":quit", ":exit":
		return true

	case ":help":
		fmt.Println(":save [ID], :load ID, :undo, :redo, :box GRAMMAR, :leave, :export, :quit")

	case ":export":
		fmt.Println(doc.ExportAsText())

	case ":undo":
		if err := doc.Undo(); err != nil {
			fmt.Println(err.Error())
		}

	case ":redo":
		if err := doc.Redo(); err != nil {
			fmt.Println(err.Error())
		}

	case ":box":
		if len(args) != 1 {
			fmt.Println(":box requires a grammar id")
			break
		}
		if err := doc.AddLanguageBox(args[0]); err != nil {
			fmt.Println(err.Error())
		}

	case ":leave":
		if err := doc.LeaveLanguageBox(); err != nil {
			fmt.Println(err.Error())
		}

	case ":save":
		id := ""
		if len(args) == 1 {
			id = args[0]
		} else if len(args) == 0 {
			id = uuid.NewString()
		} else {
			fmt.Println(":save takes at most one document id")
			break
		}
		if err := doc.Save(store, id); err != nil {
			log.Error().Err(err).Msg("saving document")
			break
		}
		fmt.Printf("saved as %s\n", id)

	case ":load":
		if len(args) != 1 {
			fmt.Println(":load requires a document id")
			break
		}
		if err := doc.Load(store, args[0]); err != nil {
			log.Error().Err(err).Msg("loading document")
		}

	default:
		fmt.Printf("unknown command %q\n", cmd)
	}

	return false
}
