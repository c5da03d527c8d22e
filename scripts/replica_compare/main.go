package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"reflect"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

type target struct {
	Method   string `yaml:"method"`
	Path     string `yaml:"path"`
	Critical bool   `yaml:"critical"`
}

type targetFile struct {
	Targets []target `yaml:"targets"`
}

type comparison struct {
	Target      target
	StatusA     int
	StatusB     int
	StatusMatch bool
	BodyMatch   bool
	Error       error
	DurationA   time.Duration
	DurationB   time.Duration
}

type fetched struct {
	status   int
	body     []byte
	duration time.Duration
}

var defaultTargets = []target{
	{Method: http.MethodGet, Path: "/api/v1/schedule/status", Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/schedule/options", Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/rooms", Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/rooms?time=13h"},
}

// replica_compare checks that two API replicas serve the same index. Volatile response fields
// (meta, loaded_at, duration) are ignored.
func main() {
	var (
		baseA       string
		baseB       string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&baseA, "a", "http://localhost:8080", "First replica base URL")
	flag.StringVar(&baseB, "b", "http://localhost:8081", "Second replica base URL")
	flag.StringVar(&targetsPath, "targets", "", "Optional YAML targets file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		comparisons  []comparison
		breaking     int
		optionalDiff int
	)

	for _, t := range targets {
		comp := compareTarget(context.Background(), client, baseA, baseB, t)
		switch {
		case comp.Error != nil, !comp.StatusMatch, !comp.BodyMatch:
			if t.Critical {
				breaking++
			} else {
				optionalDiff++
			}
		}
		comparisons = append(comparisons, comp)
	}

	printReport(os.Stdout, comparisons)

	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, optionalDiff)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	if path == "" {
		return defaultTargets, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg targetFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

func compareTarget(ctx context.Context, client *http.Client, baseA, baseB string, tgt target) comparison {
	comp := comparison{Target: tgt}

	var a, b fetched
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		a, err = fetch(gctx, client, baseA, tgt)
		return err
	})
	g.Go(func() error {
		var err error
		b, err = fetch(gctx, client, baseB, tgt)
		return err
	})
	if err := g.Wait(); err != nil {
		comp.Error = err
		return comp
	}

	comp.StatusA, comp.StatusB = a.status, b.status
	comp.DurationA, comp.DurationB = a.duration, b.duration
	comp.StatusMatch = a.status == b.status
	comp.BodyMatch = bodiesEqual(a.body, b.body)
	return comp
}

func fetch(ctx context.Context, client *http.Client, base string, tgt target) (fetched, error) {
	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	url := strings.TrimRight(base, "/") + path

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return fetched{}, err
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return fetched{}, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fetched{}, fmt.Errorf("read %s: %w", url, err)
	}
	return fetched{status: resp.StatusCode, body: body, duration: time.Since(start)}, nil
}

var volatileKeys = map[string]struct{}{
	"meta":        {},
	"loaded_at":   {},
	"duration_ms": {},
	"request_id":  {},
}

func bodiesEqual(a, b []byte) bool {
	if bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}

	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	normalize(&aj)
	normalize(&bj)
	return reflect.DeepEqual(aj, bj)
}

func normalize(v *interface{}) {
	switch val := (*v).(type) {
	case map[string]interface{}:
		for k, v2 := range val {
			if _, skip := volatileKeys[k]; skip {
				delete(val, k)
				continue
			}
			normalize(&v2)
			val[k] = v2
		}
	case []interface{}:
		for i, v2 := range val {
			normalize(&v2)
			val[i] = v2
		}
	case float64:
		if val == float64(int64(val)) {
			*v = int64(val)
		}
	}
}

func printReport(w io.Writer, results []comparison) {
	fmt.Fprintln(w, "Replica Compare Report")
	fmt.Fprintln(w, "======================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.StatusMatch || !res.BodyMatch {
			status = "DIFF"
		}
		fmt.Fprintf(w, "[%s] %s %s\n", status, res.Target.Method, res.Target.Path)
		fmt.Fprintf(w, "  A: %d (%s)\n", res.StatusA, res.DurationA)
		fmt.Fprintf(w, "  B: %d (%s)\n", res.StatusB, res.DurationB)
		if res.Error != nil {
			fmt.Fprintf(w, "  Error: %v\n", res.Error)
		} else {
			fmt.Fprintf(w, "  Status match: %t | Body match: %t | Critical: %t\n", res.StatusMatch, res.BodyMatch, res.Target.Critical)
		}
	}
}
