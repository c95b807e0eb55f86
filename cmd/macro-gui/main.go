package main

import (
	"flag"
	"log"
	"os"

	"fyne.io/fyne/v2/app"

	"jordanella.com/game-helper-go/internal/config"
	"jordanella.com/game-helper-go/internal/gui"
	"jordanella.com/game-helper-go/internal/session"
)

func main() {
	configPath := flag.String("config", "Settings.ini", "Path to Settings.ini (created with defaults when missing)")
	flag.Parse()

	cfg, err := config.LoadOrCreate(*configPath)
	if err != nil {
		log.Printf("Warning: Failed to load config: %v", err)
		cfg = config.NewDefaultConfig()
	}

	sess, err := session.Open(cfg, session.Options{Console: os.Stdout})
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer sess.Close()

	myApp := app.NewWithID("com.jordanella.game-helper")
	myApp.Settings().SetTheme(&gui.MacroTheme{})

	mainWindow := myApp.NewWindow("Game Helper")
	mainWindow.Resize(gui.DefaultWindowSize)

	controller := gui.NewController(myApp, mainWindow, gui.Options{
		Config:     cfg,
		ConfigPath: *configPath,
		Manager:    sess.Manager,
		Watcher:    sess.Watcher,
		Emergency:  sess.Emergency,
		Bus:        sess.Bus,
		DB:         sess.DB,
		Templates:  sess.Templates,
	})

	mainWindow.SetContent(controller.BuildUI())
	mainWindow.SetMaster()
	controller.Start()
	mainWindow.ShowAndRun()

	controller.Shutdown()
}
