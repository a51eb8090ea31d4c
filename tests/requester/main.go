package main

import (
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// Hammers the read surface of a locally running sync service to eyeball
// latency and the http metrics under concurrent load.

const baseURL = "http://localhost:8080"

var paths = []string{
	"/orders/my",
	"/profile",
	"/notifications",
	"/executors?sort=rating",
	"/executors?sort=price",
}

func main() {
	for {
		var wg sync.WaitGroup
		for range rand.Intn(10) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				doRequest()
			}()
		}
		wg.Wait()
		time.Sleep(20 * time.Millisecond)
	}
}

func doRequest() {
	path := paths[rand.Intn(len(paths))]
	start := time.Now()
	resp, err := http.Get(baseURL + path)
	if err != nil {
		fmt.Println("request failed:", err)
		return
	}
	resp.Body.Close()
	fmt.Printf("%s %d %s\n", path, resp.StatusCode, time.Since(start))
}
