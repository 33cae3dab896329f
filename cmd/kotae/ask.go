package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/shell"
)

func printAskUsage(fs *flag.FlagSet) {
	fmt.Fprintln(os.Stderr, "Usage: kotae ask [flags] <question>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Answers the question from the built index and prints the sources it used.")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Flags:")
	fs.PrintDefaults()
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	fs.Usage = func() { printAskUsage(fs) }
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	outputFormat := fs.String("output", "text", "output format: text or json")
	audioFile := fs.String("audio", "", "write the spoken answer to this file")
	noVoice := fs.Bool("no-voice", false, "skip speech rendering")
	topK := fs.Int("k", 0, "number of chunks to retrieve (0 = retrieval.top_k)")
	quiet := fs.Bool("quiet", false, "do not print progress to stderr")
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	question := joinArgs(fs.Args())
	if question == "" {
		printAskUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}

	a, err := newApp(*configPath, *debug)
	if err != nil {
		fatalf("%v", err)
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	embedder, err := a.newEmbedder()
	if err != nil {
		fatalf("Failed to create embedder: %v", err)
	}
	defer embedder.Close()
	r, err := a.loadRetriever(ctx, embedder)
	if err != nil {
		fatalf("Failed to load index: %v (run 'kotae build' first)", err)
	}
	defer r.Close()

	speech := !*noVoice && *audioFile != ""
	sh, err := a.newShell(r, shellOptions{speech: speech, topK: *topK})
	if err != nil {
		fatalf("%v", err)
	}

	var progress shell.ProgressFunc
	if !*quiet {
		progress = func(percent int, stage shell.Stage) {
			fmt.Fprintf(os.Stderr, "[%3d%%] %s\n", percent, stage)
		}
	}
	start := time.Now()
	sess, err := sh.Submit(ctx, sh.NewSession("cli"), question, progress)
	if err != nil {
		fatalf("%v", err)
	}
	if sess.State == shell.ShowingError {
		fatalf("%s", sess.Error)
	}

	out := cli.NewAnswerOutput(question, sess.Answer, time.Since(start))
	if sess.Audio != nil && *audioFile != "" {
		if err := os.WriteFile(*audioFile, sess.Audio.Data, 0644); err != nil {
			fatalf("Failed to write audio: %v", err)
		}
		out.AudioFile = *audioFile
	}
	if err := cli.WriteAnswer(os.Stdout, out, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}
