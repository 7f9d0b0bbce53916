// Package main connects a batch of clients to the live content feed and
// reports how many events each received.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// Metrics tracks the run results
type Metrics struct {
	ConnectionsAttempted int64
	ConnectionsSuccess   int64
	ConnectionsFailed    int64
	EventsReceived       int64
	PostsCreated         int64
	Errors               int64
}

var metrics Metrics

func main() {
	host := flag.String("host", "localhost:8080", "API server host")
	topics := flag.String("topics", "", "Comma separated topics (posts, categories, images); empty means all")
	clients := flag.Int("clients", 20, "Number of concurrent feed clients")
	duration := flag.Duration("duration", 30*time.Second, "Run duration")
	email := flag.String("email", "", "Writer email; when set, a post is created every -interval to drive events")
	password := flag.String("password", "", "Writer password")
	interval := flag.Duration("interval", 5*time.Second, "Post creation interval")
	flag.Parse()

	log.Printf("Feed watch against %s: %d clients for %v", *host, *clients, *duration)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup
	stopChan := make(chan struct{})

	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go runClient(*host, *topics, stopChan, &wg)
		time.Sleep(20 * time.Millisecond)
	}

	if *email != "" {
		token, err := login(*host, *email, *password)
		if err != nil {
			log.Fatalf("Login failed: %v", err)
		}
		wg.Add(1)
		go drivePosts(*host, token, *interval, stopChan, &wg)
	}

	select {
	case <-time.After(*duration):
		log.Println("Run duration reached")
	case <-interrupt:
		log.Println("Interrupted")
	}

	close(stopChan)
	wg.Wait()

	printMetrics()
}

func login(host, email, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := http.Post(fmt.Sprintf("http://%s/api/auth/login", host), "application/json", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d", resp.StatusCode)
	}
	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Token, nil
}

func drivePosts(host, token string, interval time.Duration, stopChan <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopChan:
			return
		case <-ticker.C:
		}
		payload, _ := json.Marshal(map[string]any{
			"title":     fmt.Sprintf("Feed watch %d", time.Now().UnixNano()),
			"content":   "Generated by feedwatch",
			"author":    "feedwatch",
			"isVisible": false,
		})
		req, _ := http.NewRequest(http.MethodPost, fmt.Sprintf("http://%s/api/blogposts", host), bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := client.Do(req)
		if err != nil {
			atomic.AddInt64(&metrics.Errors, 1)
			continue
		}
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			atomic.AddInt64(&metrics.PostsCreated, 1)
		} else {
			atomic.AddInt64(&metrics.Errors, 1)
		}
	}
}

func runClient(host, topics string, stopChan <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	atomic.AddInt64(&metrics.ConnectionsAttempted, 1)

	u := url.URL{Scheme: "ws", Host: host, Path: "/api/ws/feed"}
	if topics != "" {
		u.RawQuery = url.Values{"topics": {topics}}.Encode()
	}

	c, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		atomic.AddInt64(&metrics.ConnectionsFailed, 1)
		atomic.AddInt64(&metrics.Errors, 1)
		return
	}
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	defer func() { _ = c.Close() }()

	atomic.AddInt64(&metrics.ConnectionsSuccess, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
			atomic.AddInt64(&metrics.EventsReceived, 1)
		}
	}()

	select {
	case <-stopChan:
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	case <-done:
	}
}

func printMetrics() {
	fmt.Println()
	fmt.Println("Feed watch results")
	fmt.Printf("Connections attempted: %d\n", metrics.ConnectionsAttempted)
	fmt.Printf("Connections success:   %d\n", metrics.ConnectionsSuccess)
	fmt.Printf("Connections failed:    %d\n", metrics.ConnectionsFailed)
	fmt.Printf("Posts created:         %d\n", metrics.PostsCreated)
	fmt.Printf("Events received:       %d\n", metrics.EventsReceived)
	fmt.Printf("Errors:                %d\n", metrics.Errors)
}
