package main

import (
	"fmt"
	"log"
	"os"

	"github.com/alecthomas/kong"
	"github.com/mgmeyers/woff2ttf/fontutils"
)

var args struct {
	Source      string `arg:"" name:"source" help:"Path of the WOFF2 font to convert"`
	Destination string `arg:"" name:"destination" help:"Path to write the TTF font to"`
}

func logOutput(msg string) {
	oLog := log.New(os.Stdout, "", 0)
	oLog.Println(msg)
}

func main() {
	kong.Parse(&args)

	fnt, err := fontutils.LoadFont(args.Source)
	endIfErr(err)

	fnt.SetFlavor(fontutils.FlavorNone)

	err = fnt.WriteFile(args.Destination)
	endIfErr(err)

	logOutput(fmt.Sprintf("Converted %s to %s", args.Source, args.Destination))
}
