package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"screenapi/config"
	"screenapi/ml"
	"screenapi/setup"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "config file")
	srcDir := flag.String("src", ".", "directory to search for model files")
	pattern := flag.String("pattern", setup.DefaultPattern, "glob for candidate model files")
	assumeYes := flag.Bool("yes", false, "copy without asking")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	store := cfg.Store()

	if err := os.MkdirAll(store.Dir, 0o755); err != nil {
		log.Fatalf("failed to create model dir: %v", err)
	}
	absDir, _ := filepath.Abs(store.Dir)
	fmt.Println("Model setup")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Models directory: %s\n\n", absDir)

	fmt.Println("Checking for existing models...")
	present := setup.Exists(store)
	for _, slot := range ml.Slots {
		state := "missing"
		if present[slot] {
			state = "found"
		}
		fmt.Printf("  %s model %s: %s\n", slot.Title(), state, store.Files[slot])
	}
	fmt.Println()

	fmt.Println("Place your model files at:")
	for _, slot := range ml.Slots {
		fmt.Printf("  - %s\n", store.Path(slot))
	}
	fmt.Println()
	fmt.Println("Model requirements:")
	fmt.Println("  - JSON artifact (decision_tree, random_forest, logistic_regression, linear_svm) or .onnx")
	fmt.Printf("  - %d binary features (A1-A%d)\n", ml.NumQuestions, ml.NumQuestions)
	fmt.Println("  - binary output (0/1)")
	fmt.Println()

	files, err := setup.Discover(os.DirFS(*srcDir), *pattern)
	if err != nil {
		log.Fatalf("failed to search %s: %v", *srcDir, err)
	}
	if len(files) == 0 {
		fmt.Printf("No files matching %s in %s\n", *pattern, *srcDir)
		return
	}

	fmt.Println("Found model files:")
	for _, name := range files {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Println()

	if !*assumeYes && !confirm("Copy these files to the models directory? (y/n): ") {
		return
	}

	for _, out := range setup.Install(*srcDir, files, store) {
		switch {
		case out.Skipped():
			fmt.Printf("Skipping %s: unclear if adult or toddler model\n", out.Source)
		case out.Err != nil:
			fmt.Printf("Error copying %s: %v\n", out.Source, out.Err)
		default:
			fmt.Printf("Copied %s to %s\n", out.Source, out.Target)
		}
	}
	fmt.Println()
	fmt.Println("Start the server with: go run .")
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
