package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"ligdichat/client/internal/api"
	"ligdichat/client/internal/channel"
	"ligdichat/client/internal/config"
	"ligdichat/client/internal/engine"
	"ligdichat/client/internal/models"
	"ligdichat/client/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: no .env file loaded")
	}
	cfg := config.Load()

	token := cfg.Token
	if token == "" {
		email := os.Getenv("LIGDI_EMAIL")
		if email == "" {
			log.Fatal("set LIGDI_TOKEN, or LIGDI_EMAIL to request one from the devserver")
		}
		var err error
		if token, err = requestToken(cfg.APIURL, email); err != nil {
			log.Fatalf("failed to obtain token: %v", err)
		}
	}

	sess, err := session.FromToken(token)
	if err != nil {
		log.Fatalf("bad session token: %v", err)
	}

	eng := engine.New(sess, api.NewClient(cfg.APIURL, token), channel.NewClient(cfg.ChannelURL(), token))
	eng.Confirm = confirmDelete
	eng.OnUpdate = render(sess)
	go eng.Run()
	defer eng.Close()

	if err := eng.Bootstrap(); err != nil {
		// The engine stays usable with whatever state did load.
		log.Printf("bootstrap: %v", err)
	}

	fmt.Printf("Connected as %s. Commands: /open <n>, /chat <email>, /del <id>, /img <path>, /quit\n", sess.Me.Email)
	repl(eng)
}

// requestToken asks the devserver's token endpoint for a session credential.
func requestToken(apiURL, email string) (string, error) {
	body, _ := json.Marshal(map[string]string{"email": email})
	resp, err := http.Post(strings.TrimSuffix(apiURL, "/")+"/api/token", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("no token in response (status %d)", resp.StatusCode)
	}
	return out.Token, nil
}

func confirmDelete(messageID int64) bool {
	fmt.Printf("delete message %d? [y/N] ", messageID)
	r := bufio.NewReader(os.Stdin)
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(strings.ToLower(line)) == "y"
}

// render prints a compact view after every engine mutation.
func render(sess session.Session) func(engine.Snapshot) {
	var lastLen int
	return func(snap engine.Snapshot) {
		if len(snap.Timeline) < lastLen {
			// Conversation switched or messages deleted: reprint from the top.
			lastLen = 0
		}
		for _, m := range snap.Timeline[lastLen:] {
			who := "them"
			if m.SenderID == sess.Me.ID {
				who = "me"
			}
			fmt.Printf("[%s] %s: %s (id %d)\n", m.CreatedAt.Format("15:04:05"), who, m.DisplayContent(), m.ID)
		}
		lastLen = len(snap.Timeline)
		if len(snap.Typing) > 0 {
			fmt.Printf("... %s typing\n", strings.Join(snap.Typing, ", "))
		}
	}
}

func repl(eng *engine.Engine) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return

		case strings.HasPrefix(line, "/open "):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "/open ")))
			snap := eng.Snapshot()
			if err != nil || n < 1 || n > len(snap.Conversations) {
				fmt.Println("usage: /open <conversation number>")
				continue
			}
			if err := eng.SetActive(snap.Conversations[n-1]); err != nil {
				fmt.Println("error:", err)
			}

		case strings.HasPrefix(line, "/chat "):
			if err := eng.StartConversation(strings.TrimSpace(strings.TrimPrefix(line, "/chat "))); err != nil {
				fmt.Println("error:", err)
			}

		case strings.HasPrefix(line, "/del "):
			id, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(line, "/del ")), 10, 64)
			if err != nil {
				fmt.Println("usage: /del <message id>")
				continue
			}
			if err := eng.DeleteMessage(id); err != nil {
				fmt.Println("error:", err)
			}

		case strings.HasPrefix(line, "/img "):
			path := strings.TrimSpace(strings.TrimPrefix(line, "/img "))
			data, err := os.ReadFile(path)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			if err := eng.SendAttachment(path, data, models.KindImage); err != nil {
				fmt.Println("error:", err)
			}

		default:
			eng.InputActivity()
			if err := eng.SendMessage(line); err != nil {
				// Content is not lost: it stays on the prompt history for a retry.
				fmt.Println("send failed:", err)
			}
		}
	}
}
