// Package main starts an async grouping and follows its WebSocket events.
//
//	go run ./scripts [students.csv cars.csv]
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"cargroup/internal/integrations/table"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

func demoTables() (students, cars []map[string]any) {
	genders := []string{"F", "M"}
	for i := range 24 {
		students = append(students, map[string]any{
			"student_id": fmt.Sprintf("s%02d", i+1),
			"license":    i%4 == 0,
			"gender":     genders[i%2],
			"grade":      fmt.Sprint(9 + i%3),
		})
	}
	for i := range 6 {
		cars = append(cars, map[string]any{"car_id": fmt.Sprintf("c%d", i+1), "capacity": 4 + i%2})
	}
	return students, cars
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	students, cars := demoTables()
	if len(os.Args) == 3 {
		st, err := table.ReadFile(os.Args[1], "students")
		if err != nil {
			log.Fatal(err)
		}
		ct, err := table.ReadFile(os.Args[2], "cars")
		if err != nil {
			log.Fatal(err)
		}
		students, cars = st.Records, ct.Records
	}

	body, _ := json.Marshal(map[string]any{
		"name":     "ws demo",
		"students": students,
		"cars":     cars,
		"async":    true,
		"config":   map[string]any{"time_budget_seconds": 3, "snapshot_every": 200},
	})
	resp, err := http.Post(base+"/v1/groupings", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusAccepted {
		log.Fatalf("create grouping: %s", resp.Status)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		log.Fatal(err)
	}
	log.Printf("Grouping ID: %s", created.ID)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/groupings/" + created.ID + "/events/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					log.Printf("read: %v", err)
				}
				return
			}
			data, _ := json.Marshal(m.Data)
			log.Printf("WS <- %s: %s", m.Type, data)
		}
	}()

	select {
	case <-time.After(30 * time.Second):
		log.Print("timed out waiting for grouping.finished")
	case <-done:
	}
}
