package main

import (
	"os"

	"github.com/labstack/gommon/color"

	"github.com/born-ml/styleshift/internal/app/styleshift"
)

func main() {
	if version != "" {
		styleshift.Version = version
	}
	printBanner()
	styleshift.Execute()
}

var (
	version string
)

func printBanner() {
	banner := `
       __        __         __    _ ______ 
  ___ / /___ __ / /__ ___  / /   (_) _/ /_
 (_-</ __/ // // / -_|_-< / _ \ / / _/ __/
/___/\__/\_, //_/\__/___//_//_//_/_/ \__/  v: %s
        /___/
%s
________________________________________________________

`
	cl := color.New()
	cl.SetOutput(os.Stderr)
	cl.Printf(banner, cl.Red(styleshift.Version), cl.Green("github.com/born-ml/styleshift"))
}
