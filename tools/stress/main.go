package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"tickstore/internal/models"
)

// 通过 /ws/ingest 向 tickstore 灌入随机游走行情，统计被接受的 TPS
func main() {
	url := flag.String("url", "ws://127.0.0.1:8080/ws/ingest", "ingest websocket endpoint")
	conns := flag.Int("conns", 4, "parallel producer connections")
	frame := flag.Int("frame", 100, "ticks per frame")
	dur := flag.Duration("duration", 30*time.Second, "test duration")
	flag.Parse()

	fmt.Println("🚀 Initializing Tick Stress Tester")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx, cancelDur := context.WithTimeout(ctx, *dur)
	defer cancelDur()

	var accepted, rejected atomic.Int64
	startTime := time.Now()

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				elapsed := time.Since(startTime).Seconds()
				fmt.Printf("📊 Metrics: Accepted=%d, Rejected=%d, Elapsed=%.1fs, Current TPS=%.2f\n",
					accepted.Load(), rejected.Load(), elapsed, float64(accepted.Load())/elapsed)
			}
		}
	}()

	fmt.Println("⚡ Starting Load Injection...")
	var wg sync.WaitGroup
	for i := 0; i < *conns; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := produce(ctx, *url, id, *frame, &accepted, &rejected); err != nil {
				log.Printf("❌ producer %d: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	totalTime := time.Since(startTime)
	fmt.Printf("🏁 Stress Test Completed!\nTotal Ticks: %d\nTotal Time: %v\nAverage TPS: %.2f\n",
		accepted.Load(), totalTime, float64(accepted.Load())/totalTime.Seconds())
}

func produce(ctx context.Context, url string, id, frame int, accepted, rejected *atomic.Int64) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	symbol := fmt.Sprintf("SYM%02d", id)
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id))) // #nosec G404 - load data only
	price := 100.0

	for ctx.Err() == nil {
		batch := make([]models.Tick, frame)
		for i := range batch {
			price += rng.NormFloat64() * 0.05
			batch[i] = models.NewTick(symbol, time.Now().UTC().Format(time.RFC3339Nano), price, float64(rng.Intn(10)+1))
		}
		if err := conn.WriteJSON(batch); err != nil {
			return err
		}

		var reply struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		// stats 推送与回执交错到达，只统计回执
		for {
			if err := conn.ReadJSON(&reply); err != nil {
				return err
			}
			if reply.Type != "stats" {
				break
			}
		}
		switch reply.Type {
		case "ack":
			var ack struct {
				Accepted int `json:"accepted"`
				Rejected int `json:"rejected"`
			}
			_ = json.Unmarshal(reply.Data, &ack)
			accepted.Add(int64(ack.Accepted))
			rejected.Add(int64(ack.Rejected))
		default:
			rejected.Add(int64(frame))
			time.Sleep(100 * time.Millisecond)
		}
	}
	return nil
}
