package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/securechat/securechat/internal/app"
	"github.com/securechat/securechat/internal/profile"
	"go.uber.org/fx"
)

func main() {
	// Optional env overrides (SECURECHAT_PROFILE et al.) from the base dir.
	_ = godotenv.Load(profile.BaseDir() + "/.env")

	profileFlag := flag.String("profile", "", "profile name (overrides env and config default)")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fx.New(
		app.Module(app.Params{ProfileName: profileName}),
	).Run()
}
