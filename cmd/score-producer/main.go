package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IBM/sarama"
)

// scoreSubmission matches the submission payload consumed by the server
type scoreSubmission struct {
	Name         string        `json:"name"`
	Score        float64       `json:"score"`
	RoundsData   []roundResult `json:"roundsData,omitempty"`
	GameInstance string        `json:"gameInstance,omitempty"`
}

type roundResult struct {
	Round  int        `json:"round"`
	Guess  coordinate `json:"guess"`
	Actual coordinate `json:"actual"`
	Score  int        `json:"score"`
}

type coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

var namePrefixes = []string{
	"Campus", "Quad", "Tower", "Library", "Fountain", "Archway", "Chapel", "Stadium", "Lakeside", "Garden",
	"Maple", "Elm", "Oak", "Cedar", "Willow", "Birch", "Granite", "Slate", "Brick", "Ivy",
}

func playerName(idx int) string {
	prefixIdx := idx % len(namePrefixes)
	suffix := idx/len(namePrefixes) + 1
	return fmt.Sprintf("%sExplorer%d", namePrefixes[prefixIdx], suffix)
}

// randomRounds fabricates five rounds that sum to the given total
func randomRounds(total int) []roundResult {
	rounds := make([]roundResult, 5)
	remaining := total
	for i := range rounds {
		score := remaining / (len(rounds) - i)
		remaining -= score
		rounds[i] = roundResult{
			Round:  i + 1,
			Guess:  coordinate{Lat: 40.0 + rand.Float64()*0.02, Lng: -75.0 + rand.Float64()*0.02},
			Actual: coordinate{Lat: 40.0 + rand.Float64()*0.02, Lng: -75.0 + rand.Float64()*0.02},
			Score:  score,
		}
	}
	return rounds
}

func main() {
	// Command line flags
	brokers := flag.String("brokers", "localhost:9094", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "game-scores", "Kafka topic")
	instance := flag.String("instance", "public", "Game instance name")
	totalPlayers := flag.Int("players", 500, "Number of distinct player names")
	rate := flag.Int("rate", 50, "Submissions per second")
	duration := flag.Duration("duration", 0, "Duration to run (0 = forever)")
	flag.Parse()

	brokerList := strings.Split(*brokers, ",")

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println("  Score submission load generator")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("  Brokers:       %s\n", *brokers)
	fmt.Printf("  Topic:         %s\n", *topic)
	fmt.Printf("  Instance:      %s\n", *instance)
	fmt.Printf("  Players:       %d\n", *totalPlayers)
	fmt.Printf("  Rate:          %d/sec\n", *rate)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	// Configure Sarama producer
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Flush.Messages = 100
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	// Create producer
	producer, err := sarama.NewAsyncProducer(brokerList, config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}
	defer producer.Close()

	// Handle producer errors and successes
	var successCount, errorCount int64
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range producer.Successes() {
			atomic.AddInt64(&successCount, 1)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range producer.Errors() {
			atomic.AddInt64(&errorCount, 1)
			log.Printf("Producer error: %v", err)
		}
	}()

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})

	shutdown := func() {
		close(done)
		producer.AsyncClose()
		wg.Wait()
		fmt.Printf("\nCompleted. Sent: %d, Errors: %d\n", atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))
	}

	// Send message helper
	sendMessage := func(sub scoreSubmission) {
		data, err := json.Marshal(sub)
		if err != nil {
			log.Printf("Failed to marshal message: %v", err)
			return
		}

		msg := &sarama.ProducerMessage{
			Topic: *topic,
			Key:   sarama.StringEncoder(sub.Name),
			Value: sarama.ByteEncoder(data),
		}

		select {
		case producer.Input() <- msg:
		case <-done:
		}
	}

	interval := time.Second / time.Duration(*rate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var endTime time.Time
	if *duration > 0 {
		endTime = time.Now().Add(*duration)
	}

	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	var sent int64
	for {
		select {
		case <-sigChan:
			fmt.Println("\nShutting down...")
			shutdown()
			return

		case <-ticker.C:
			if *duration > 0 && time.Now().After(endTime) {
				fmt.Println("\nDuration reached, shutting down...")
				shutdown()
				return
			}

			total := rand.Intn(5001)
			sub := scoreSubmission{
				Name:         playerName(rand.Intn(*totalPlayers)),
				Score:        float64(total),
				RoundsData:   randomRounds(total),
				GameInstance: *instance,
			}
			sendMessage(sub)

			sent++
			if sent%500 == 0 {
				fmt.Printf("\r  Sent: %d, Confirmed: %d, Errors: %d",
					sent, atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))
			}
		}
	}
}
