package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/quizbd/quizbd-go/internal/api"
	"github.com/quizbd/quizbd-go/internal/config"
	"github.com/quizbd/quizbd-go/internal/event"
	"github.com/quizbd/quizbd-go/internal/payment"
	"github.com/quizbd/quizbd-go/internal/session"
	"github.com/quizbd/quizbd-go/internal/storage"
	"github.com/quizbd/quizbd-go/internal/student"
	"github.com/quizbd/quizbd-go/internal/teacher"
)

type Config struct {
	API struct {
		BaseURL string
	}

	State struct {
		Path string
	}

	Payment struct {
		ListenAddr string
	}
}

func main() {
	_ = godotenv.Load()

	c, err := loadConfig()
	if err != nil {
		log.Fatalf("Load config failed: %v", err)
	}

	a, err := initApp(c)
	if err != nil {
		log.Fatalf("Init failed: %v", err)
	}
	defer a.eb.Stop()

	cli := &commandLine{app: a}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func loadConfig() (Config, error) {
	var c Config
	c.API.BaseURL = "http://localhost:5000/api"
	c.Payment.ListenAddr = "127.0.0.1:8642"

	if home, err := os.UserHomeDir(); err == nil {
		c.State.Path = filepath.Join(home, ".quizbd", "state.json")
	} else {
		c.State.Path = "state.json"
	}

	if err := config.Load(os.Getenv("CONFIG_PATH"), &c); err != nil {
		return c, fmt.Errorf("load config: %w", err)
	}

	return c, nil
}

// app wires the storage, session and services behind the CLI.
type app struct {
	eb      *event.Bus
	api     *api.Client
	session *session.Store
	student *student.Service
	teacher *teacher.Service
	payment *payment.Service
}

func initApp(c Config) (*app, error) {
	st, err := storage.OpenFile(c.State.Path)
	if err != nil {
		return nil, fmt.Errorf("open state: %w", err)
	}

	a := &app{eb: event.NewBus()}
	a.session = session.NewStore(session.Config{Storage: st})
	a.api = api.NewClient(api.Config{
		BaseURL: c.API.BaseURL,
		Tokens:  a.session,
	})
	a.student = student.NewService(student.Config{
		API:     a.api,
		Session: a.session,
		Storage: st,
	})
	a.teacher = teacher.NewService(teacher.Config{
		API:     a.api,
		Session: a.session,
	})
	a.payment = payment.NewService(payment.Config{
		API:        a.api,
		EventBus:   a.eb,
		ListenAddr: c.Payment.ListenAddr,
	})

	return a, nil
}
