package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ivlev/mangatl/internal/analyzer"
	"github.com/ivlev/mangatl/internal/config"
	"github.com/ivlev/mangatl/internal/grouping"
	"github.com/ivlev/mangatl/internal/inpaint"
	"github.com/ivlev/mangatl/internal/layout"
	"github.com/ivlev/mangatl/internal/mask"
	"github.com/ivlev/mangatl/internal/ocr"
	"github.com/ivlev/mangatl/internal/output"
	"github.com/ivlev/mangatl/internal/pipeline"
	"github.com/ivlev/mangatl/internal/source"
	"github.com/ivlev/mangatl/internal/system"
	"github.com/ivlev/mangatl/internal/translate"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05"})

	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits(log)

	// Создаем нужные директории, если их нет
	for _, d := range []string{"input", "output"} {
		os.MkdirAll(d, 0755)
	}

	configPtr := flag.String("config", "", "Путь к YAML конфигурации (по умолчанию: встроенные настройки)")
	inputPtr := flag.String("input", "", "Путь к PDF, изображению или папке с изображениями (по умолчанию: самый свежий файл в input/)")
	outputPtr := flag.String("output", "", "Папка результата (если пусто, генерируется автоматически в output/)")
	workersPtr := flag.Int("workers", system.DefaultWorkers(), "Потоки")
	batchPtr := flag.Int("batch", 4, "Страниц на один вызов детектора")
	dpiPtr := flag.Int("dpi", 150, "DPI рендера PDF")
	devicePtr := flag.String("device", "cpu", "Устройство ONNX: cpu, cuda, cuda:<id>")
	detectorPtr := flag.String("detector", "onnx", "Детектор: onnx, contrast")
	inpaintPtr := flag.String("inpaint", "telea", "Стирание текста: telea, ns, lama")
	providerPtr := flag.String("provider", "openai", "Переводчик: openai, none")
	targetPtr := flag.String("target", "English", "Язык перевода")
	formatPtr := flag.String("format", "", "Формат страниц: png, jpg (по умолчанию как у источника)")
	archivePtr := flag.Bool("cbz", false, "Упаковать результат в CBZ")
	debugPtr := flag.Bool("debug-boxes", false, "Рисовать рамки детекций поверх страниц")
	statsPtr := flag.Bool("stats", false, "Показать отчет о производительности")
	logLevelPtr := flag.String("log-level", "info", "Уровень логов: debug, info, warn, error")

	flag.Parse()

	cfg, err := config.Load(*configPtr)
	if err != nil {
		log.Fatalf("[-] Ошибка конфигурации: %v", err)
	}
	cfg.BuildVersion = version

	// Явно заданные флаги перекрывают файл конфигурации
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.InputPath = *inputPtr
		case "output":
			cfg.Output.Dir = *outputPtr
		case "workers":
			cfg.Workers = *workersPtr
		case "batch":
			cfg.BatchSize = *batchPtr
		case "dpi":
			cfg.DPI = *dpiPtr
		case "device":
			cfg.Device = *devicePtr
		case "detector":
			cfg.Detector.Variant = *detectorPtr
		case "inpaint":
			cfg.Inpaint.Engine = *inpaintPtr
		case "provider":
			cfg.Translation.Provider = *providerPtr
		case "target":
			cfg.Translation.Target = *targetPtr
		case "format":
			cfg.Output.Format = *formatPtr
		case "debug-boxes":
			cfg.Output.DebugBoxes = *debugPtr
		case "stats":
			cfg.ShowStats = *statsPtr
		case "log-level":
			cfg.LogLevel = *logLevelPtr
		}
	})
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] Некорректная конфигурация:\n%v", err)
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("[-] Ошибка: %v", err)
	}
	log.SetLevel(level)

	if cfg.InputPath == "" {
		latest, err := system.FindLatestInput("input")
		if err != nil {
			log.Fatalf("[-] Ошибка: %v. Положите PDF или изображения в input/", err)
		}
		cfg.InputPath = latest
		log.Infof("[*] Выбран файл: %s", cfg.InputPath)
	}

	outDir := cfg.Output.Dir
	if !isFlagSet("output") {
		baseName := filepath.Base(cfg.InputPath)
		nameOnly := strings.TrimSuffix(baseName, filepath.Ext(baseName))
		cleanName := strings.ReplaceAll(nameOnly, " ", "_")
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		outDir = filepath.Join(cfg.Output.Dir, fmt.Sprintf("%s_%s", cleanName, timestamp))
	}
	archive := ""
	if *archivePtr || cfg.Output.Archive != "" {
		archive = cfg.Output.Archive
		if archive == "" {
			archive = outDir + ".cbz"
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, outDir, archive, log); err != nil {
		log.Fatalf("[-] Ошибка проекта: %v", err)
	}
	log.Infof("[+++] Успех! Результат: %s", outDir)
}

func run(ctx context.Context, cfg *config.Config, outDir, archive string, log *logrus.Logger) error {
	src, err := source.Open(cfg.InputPath)
	if err != nil {
		return fmt.Errorf("источник: %w", err)
	}
	defer src.Close()

	// Инициализируем зависимости
	detector, err := analyzer.NewDetector(analyzer.Settings{
		Variant:     cfg.Detector.Variant,
		ModelPath:   cfg.Detector.ModelPath,
		LibraryPath: cfg.ONNXLibrary,
		InputSize:   cfg.Detector.InputSize,
		Confidence:  cfg.Detector.Confidence,
		Device:      cfg.Device,
	})
	if err != nil {
		return fmt.Errorf("детектор: %w", err)
	}
	defer closeIfCloser(detector)

	reader, err := ocr.NewTesseract(cfg.OCR.Languages...)
	if err != nil {
		return fmt.Errorf("ocr: %w", err)
	}
	defer reader.Close()

	translator, err := translate.New(translate.Settings{
		Provider:   cfg.Translation.Provider,
		APIKey:     cfg.Translation.APIKey,
		BaseURL:    cfg.Translation.BaseURL,
		Model:      cfg.Translation.Model,
		Source:     cfg.Translation.Source,
		Target:     cfg.Translation.Target,
		Uppercase:  cfg.Translation.Uppercase,
		MaxRetries: cfg.Translation.MaxRetries,
		RetryDelay: cfg.Translation.RetryDelay,
	})
	if err != nil {
		return fmt.Errorf("перевод: %w", err)
	}

	inpainter, err := inpaint.New(inpaint.Settings{
		Engine:      cfg.Inpaint.Engine,
		ModelPath:   cfg.Inpaint.ModelPath,
		LibraryPath: cfg.ONNXLibrary,
		Device:      cfg.Device,
		Radius:      cfg.Inpaint.Radius,
	})
	if err != nil {
		return fmt.Errorf("inpaint: %w", err)
	}
	defer closeIfCloser(inpainter)

	compositor := mask.NewCompositor(inpainter, system.NewImagePool())
	compositor.MaxDim = cfg.Inpaint.MaxDim
	compositor.Stride = cfg.Inpaint.Stride
	compositor.Padding = cfg.Inpaint.Padding

	font, err := layout.LoadFont(cfg.Layout.FontPath)
	if err != nil {
		return fmt.Errorf("шрифт: %w", err)
	}

	writer, err := output.NewWriter(output.Options{
		Dir:        outDir,
		Format:     cfg.Output.Format,
		DebugBoxes: cfg.Output.DebugBoxes,
		Archive:    archive,
		Version:    cfg.BuildVersion,
	})
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		Workers:   cfg.Workers,
		BatchSize: cfg.BatchSize,
		DPI:       cfg.DPI,
		Grouping: grouping.Options{
			IoUThreshold: cfg.Grouping.IoUThreshold,
			Order:        groupingOrder(cfg.Grouping.Order),
		},
		ShrinkFactor: cfg.Grouping.ShrinkFactor,
		Layout: layout.Options{
			MaxFontSize: cfg.Layout.MaxFontSize,
			LineSpacing: cfg.Layout.LineSpacing,
			Align:       layoutAlign(cfg.Layout.Align),
		},
		ShowStats:    cfg.ShowStats,
		BenchmarkLog: "benchmark.log",
		BuildVersion: cfg.BuildVersion,
		InputPath:    cfg.InputPath,
	}
	c := pipeline.Collaborators{
		Detector:   detector,
		OCR:        reader,
		Translator: translator,
		Compositor: compositor,
		Font:       font,
	}

	project := pipeline.NewProject(opts, src, c, writer, log)
	report, err := runProject(ctx, project, writer)
	if err != nil {
		return err
	}

	if report.Failed > 0 || report.Fallbacks > 0 {
		log.Warnf("[!] Страниц с ошибками: %d, пузырей без перевода: %d", report.Failed, report.Fallbacks)
	}
	return nil
}

// runProject runs the project and always closes the writer, so pages written
// before a cancellation or a failure still get their metadata.
func runProject(ctx context.Context, project *pipeline.Project, writer *output.Writer) (*pipeline.Report, error) {
	report, err := project.Run(ctx)
	if cerr := writer.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("метаданные: %w", cerr))
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

func groupingOrder(s string) grouping.Order {
	if s == "confidence" {
		return grouping.OrderConfidence
	}
	return grouping.OrderDetector
}

func layoutAlign(s string) layout.Align {
	if s == "center" {
		return layout.AlignCenter
	}
	return layout.AlignLeft
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func closeIfCloser(v any) {
	if c, ok := v.(io.Closer); ok {
		c.Close()
	}
}
