package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"iot-device-id/internal/cfg"
	"iot-device-id/internal/dataset"
	"iot-device-id/internal/ml"

	"github.com/go-resty/resty/v2"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type datasetInfo struct {
	TotalSamples   int            `json:"total_samples"`
	TotalFeatures  int            `json:"total_features"`
	Categories     []string       `json:"device_categories"`
	CategoryCounts map[string]int `json:"category_counts"`
}

type predictResponse struct {
	ml.PredictionResult
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func main() {
	var (
		serverURL = flag.String("server", "", "Base URL of a running server; empty runs the check in-process")
		row       = flag.Int("row", 0, "Reference row to predict in offline mode")
		top       = flag.Int("top", 3, "Number of ranked categories to print")
		logLevel  = flag.String("log-level", "warn", "Log level: debug, info, warn, error")
		timeout   = flag.Duration("timeout", 10*time.Second, "Request timeout in server mode")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *serverURL != "" {
		err = checkServer(*serverURL, *top, *timeout)
	} else {
		err = checkOffline(*row, *top)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "check failed: %v\n", err)
		os.Exit(1)
	}
}

// checkOffline loads the dataset and models exactly as the server does and predicts one
// reference row.
func checkOffline(row, top int) error {
	_ = godotenv.Load()
	c, err := cfg.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ds, err := dataset.Load(c.DatasetPath, c.LabelColumn)
	if err != nil {
		return err
	}
	rt, err := ml.Load(ml.LoadConfig{
		ModelDir:        c.ModelDir,
		LegacyModelPath: c.LegacyModelPath,
		Reference:       ds,
	})
	if err != nil {
		return err
	}
	svc := ml.NewService(rt, ml.ServiceConfig{InputPolicy: c.InputPolicy}, nil)

	fmt.Println("=== Model Load ===")
	fmt.Printf("Strategy: %s\n", rt.Report().Strategy)
	fmt.Printf("Models: %d (skipped %d)\n", rt.Pool().Len(), len(rt.Report().Skipped))
	fmt.Printf("Classes: %s (%s)\n", strings.Join(rt.Registry().Labels(), ", "), rt.Registry().Source())

	summary := ds.Summary()
	printDataset(summary.TotalSamples, summary.TotalFeatures, summary.Counts())

	sample, err := ds.Row(row)
	if err != nil {
		return err
	}
	if _, ok := rt.Registry().IndexOf(sample.Category); !ok {
		log.Warn().Str("category", sample.Category).Msg("reference label is not a registered class")
	}
	res, err := svc.Predict(context.Background(), sample.Vector)
	if err != nil {
		return err
	}
	printPrediction(sample.Category, res, top)
	return nil
}

// checkServer runs the same sequence against a live server.
func checkServer(base string, top int, timeout time.Duration) error {
	client := resty.New().
		SetBaseURL(strings.TrimRight(base, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	var info datasetInfo
	resp, err := client.R().SetResult(&info).Get("/dataset_info")
	if err != nil {
		return fmt.Errorf("dataset info: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("dataset info: HTTP %d: %s", resp.StatusCode(), resp.String())
	}
	printDataset(info.TotalSamples, info.TotalFeatures, info.CategoryCounts)

	var sample map[string]any
	resp, err = client.R().SetResult(&sample).Get("/sample_data")
	if err != nil {
		return fmt.Errorf("sample data: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("sample data: HTTP %d: %s", resp.StatusCode(), resp.String())
	}

	actual, _ := sample["actual_category"].(string)
	form := make(map[string]string, len(sample))
	for k, v := range sample {
		if k == "actual_category" {
			continue
		}
		if f, ok := v.(float64); ok {
			form[k] = strconv.FormatFloat(f, 'g', -1, 64)
		}
	}

	var pred predictResponse
	resp, err = client.R().SetFormData(form).SetResult(&pred).SetError(&pred).Post("/predict")
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}
	if resp.IsError() || !pred.Success {
		return fmt.Errorf("predict: HTTP %d: %s", resp.StatusCode(), pred.Error)
	}
	printPrediction(actual, &pred.PredictionResult, top)
	return nil
}

func printDataset(samples, features int, counts map[string]int) {
	fmt.Println("=== Dataset ===")
	fmt.Printf("Samples: %d, features: %d\n", samples, features)

	names := make([]string, 0, len(counts))
	for k := range counts {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Category", "Samples"})
	for _, n := range names {
		table.Append([]string{n, strconv.Itoa(counts[n])})
	}
	table.Render()
}

func printPrediction(actual string, res *ml.PredictionResult, top int) {
	fmt.Println("=== Prediction ===")
	fmt.Printf("Actual: %s\n", actual)
	fmt.Printf("Predicted: %s\n", res.Label)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Rank", "Category", "Confidence"})
	for i, s := range res.Top(top) {
		table.Append([]string{
			strconv.Itoa(i + 1),
			s.Label,
			fmt.Sprintf("%.2f%%", s.Probability*100),
		})
	}
	table.Render()

	if actual != "" && actual == res.Label {
		fmt.Println("Result: correct")
	} else if actual != "" {
		fmt.Println("Result: mismatch")
	}
}
