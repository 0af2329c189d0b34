package main

import (
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"ligdichat/client/internal/config"
	"ligdichat/client/internal/devserver"
)

func main() {
	log.Println("Starting LigdiChat devserver...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: no .env file loaded")
	}
	cfg := config.Load()

	srv := devserver.NewServer(cfg.JWTSecret)

	server := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        srv.Router(),
		ReadTimeout:    10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Printf("devserver listening on %s", server.Addr)
	log.Fatal(server.ListenAndServe())
}
