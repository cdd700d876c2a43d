package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const baseURL = "http://localhost:8080"

func main() {
	client := &http.Client{Timeout: 10 * time.Second}

	resp, err := client.Get(baseURL + "/healthz")
	if err != nil {
		log.Fatalf("Health check failed: %v", err)
	}
	resp.Body.Close()
	fmt.Printf("Health check: %d\n\n", resp.StatusCode)

	fmt.Println("Recording a view")
	body, _ := json.Marshal(map[string]string{
		"story_id":    "1-1",
		"fingerprint": "test-client-fingerprint",
	})

	resp, err = client.Post(baseURL+"/api/v1/views", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("Failed to record view: %v", err)
	}

	var record struct {
		Outcome  string `json:"outcome"`
		ViewerID string `json:"viewer_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		log.Fatalf("Failed to decode record response: %v", err)
	}
	resp.Body.Close()
	fmt.Printf("Outcome: %s, viewer: %s\n\n", record.Outcome, record.ViewerID)

	fmt.Println("Recording the same view again (should dedupe)")
	resp, err = client.Post(baseURL+"/api/v1/views", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("Failed to record view: %v", err)
	}
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		log.Fatalf("Failed to decode record response: %v", err)
	}
	resp.Body.Close()
	fmt.Printf("Outcome: %s\n\n", record.Outcome)

	for _, path := range []string{
		"/api/v1/stats/stories",
		"/api/v1/stats/general",
		"/api/v1/stats/snapshot",
	} {
		resp, err = client.Get(baseURL + path)
		if err != nil {
			log.Fatalf("Failed to fetch %s: %v", path, err)
		}
		payload, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		fmt.Printf("GET %s:\n%s\n\n", path, payload)
	}
}
