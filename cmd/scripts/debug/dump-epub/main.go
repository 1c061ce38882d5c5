package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/robinjoseph08/golib/logger"

	"github.com/bookerybooks/bookery/pkg/epub"
)

func main() {
	log := logger.New()

	var opts struct {
		CoverOutput string `short:"o" long:"cover-output" description:"A path to output the cover image"`
	}

	args, err := flags.Parse(&opts)
	if err != nil {
		log.Err(err).Fatal("flags parse error")
	}

	if len(args) != 1 {
		fmt.Println("go run ./cmd/scripts/debug/dump-epub <path/to/file.epub>")
		os.Exit(1)
	}

	meta, err := epub.New(epub.Options{}).ReadMetadata(args[0])
	if err != nil {
		log.Err(err).Fatal("epub read error")
	}

	fmt.Printf("Title: %s\n", meta.Title)
	fmt.Printf("Authors: %v\n", meta.Authors)
	fmt.Printf("AuthorSort: %s\n", meta.AuthorSort)
	fmt.Printf("Language: %s\n", meta.Language)
	fmt.Printf("Publisher: %s\n", meta.Publisher)
	fmt.Printf("ISBN: %s\n", meta.ISBN)
	fmt.Printf("Series: %s\n", meta.Series)
	if meta.SeriesIndex != nil {
		fmt.Printf("SeriesIndex: %g\n", *meta.SeriesIndex)
	}
	fmt.Printf("Identifiers: %v\n", meta.Identifiers)
	fmt.Printf("Description: %s\n", meta.Description)
	fmt.Printf("Has Cover Data: %v\n", meta.HasCover())

	if opts.CoverOutput != "" && meta.CoverImage != nil {
		f, err := os.Create(opts.CoverOutput)
		if err != nil {
			log.Err(err).Fatal("create file error")
		}
		_, err = f.Write(meta.CoverImage)
		if err != nil {
			log.Err(err).Fatal("file write error")
		}
	}
}
