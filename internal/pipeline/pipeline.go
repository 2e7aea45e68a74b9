// Package pipeline sequences detection, grouping, OCR, translation,
// inpainting and text rendering over every page of a source.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/mangatl/internal/analyzer"
	"github.com/ivlev/mangatl/internal/geometry"
	"github.com/ivlev/mangatl/internal/grouping"
	"github.com/ivlev/mangatl/internal/layout"
	"github.com/ivlev/mangatl/internal/mask"
	"github.com/ivlev/mangatl/internal/page"
	"github.com/ivlev/mangatl/internal/source"
	"github.com/ivlev/mangatl/internal/translate"
)

// OCR reads the text of one bubble crop.
type OCR interface {
	ExtractText(ctx context.Context, img image.Image) (string, error)
}

// PageWriter persists finished pages. Write is called concurrently.
type PageWriter interface {
	Write(r page.Result) error
}

type Options struct {
	Workers      int
	BatchSize    int
	DPI          int
	Grouping     grouping.Options
	ShrinkFactor float64
	Layout       layout.Options
	TextColor    color.Color
	ShowStats    bool
	BenchmarkLog string // appended when ShowStats is set, empty disables
	BuildVersion string
	InputPath    string
}

// Collaborators are the engines a Project drives.
type Collaborators struct {
	Detector   analyzer.Detector
	OCR        OCR
	Translator translate.Translator
	Compositor *mask.Compositor
	Font       *layout.Font
}

type Project struct {
	Options Options
	Source  source.Source
	Collaborators
	Writer PageWriter
	Log    logrus.FieldLogger
}

func NewProject(opts Options, src source.Source, c Collaborators, w PageWriter, log logrus.FieldLogger) *Project {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	if opts.TextColor == nil {
		opts.TextColor = color.Black
	}
	return &Project{Options: opts, Source: src, Collaborators: c, Writer: w, Log: log}
}

// pageState carries one page between stages.
type pageState struct {
	index   int
	name    string
	ext     string
	img     image.Image
	records []page.BubbleRecord
	free    []grouping.FreeText
	dropped int
	err     error
}

// Run processes every page. Failures of a single page are recorded on that
// page; only cancellation, an empty source or a write failure abort the run.
func (p *Project) Run(ctx context.Context) (*Report, error) {
	startTime := time.Now()
	report := &Report{BuildVersion: p.Options.BuildVersion, Input: p.Options.InputPath}

	pageCount := p.Source.PageCount()
	if pageCount == 0 {
		return nil, errors.New("источник не содержит страниц")
	}
	report.Pages = pageCount

	p.Log.Infof("[*] Источник: %s | Страниц: %d | Потоков: %d", p.Options.InputPath, pageCount, p.Options.Workers)

	// 1. Загрузка страниц (CPU bound)
	stageStart := time.Now()
	pages, err := p.loadPages(ctx, pageCount)
	if err != nil {
		return nil, err
	}
	report.Skipped = pageCount - len(pages)
	report.Timings.Load = time.Since(stageStart)

	// 2. Детекция пачками
	stageStart = time.Now()
	if err := p.detect(ctx, pages, report); err != nil {
		return nil, err
	}
	report.Timings.Detect = time.Since(stageStart)

	// 3. OCR
	stageStart = time.Now()
	if err := p.extractText(ctx, pages); err != nil {
		return nil, err
	}
	report.Timings.OCR = time.Since(stageStart)

	// 4. Один пакетный перевод на весь прогон
	stageStart = time.Now()
	p.translate(ctx, pages, report)
	report.Timings.Translate = time.Since(stageStart)

	// 5. Inpaint + рендер текста
	stageStart = time.Now()
	if err := p.renderPages(ctx, pages, report); err != nil {
		return nil, err
	}
	report.Timings.Render = time.Since(stageStart)
	report.Timings.Total = time.Since(startTime)

	if p.Options.ShowStats {
		p.printStats(report)
	}
	return report, nil
}

func (p *Project) loadPages(ctx context.Context, pageCount int) ([]*pageState, error) {
	loaded := make([]*pageState, pageCount)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Options.Workers)
	for i := 0; i < pageCount; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := p.Source.RenderPage(i, p.Options.DPI)
			if err != nil {
				p.Log.WithField("page", i).Warnf("[!] Error rendering page %d: %v", i, err)
				return nil
			}
			name, ext := p.Source.PageName(i)
			loaded[i] = &pageState{index: i, name: name, ext: ext, img: img}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pages := make([]*pageState, 0, pageCount)
	for _, st := range loaded {
		if st != nil {
			pages = append(pages, st)
		}
	}
	return pages, nil
}

func (p *Project) detect(ctx context.Context, pages []*pageState, report *Report) error {
	for start := 0; start < len(pages); start += p.Options.BatchSize {
		batch := pages[start:min(start+p.Options.BatchSize, len(pages))]
		imgs := make([]image.Image, len(batch))
		for i, st := range batch {
			imgs[i] = st.img
		}

		dets, err := p.Detector.Detect(ctx, imgs)
		if err == nil && len(dets) != len(batch) {
			err = fmt.Errorf("detector returned %d results for %d pages", len(dets), len(batch))
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			for _, st := range batch {
				st.err = fmt.Errorf("detect: %w", err)
			}
			p.Log.Warnf("[!] Детекция пачки %d-%d не удалась: %v", batch[0].index, batch[len(batch)-1].index, err)
			continue
		}

		for i, st := range batch {
			p.group(st, dets[i], report)
		}
	}
	return nil
}

func (p *Project) group(st *pageState, dets []analyzer.Detection, report *Report) {
	defer func() {
		if r := recover(); r != nil {
			st.records, st.free, st.dropped = nil, nil, 0
			st.err = fmt.Errorf("group: panic: %v", r)
			p.Log.WithField("page", st.index).Warnf("[!] Группировка: %v", st.err)
		}
	}()

	res := grouping.Group(dets, p.Options.Grouping)
	st.free = res.FreeText
	st.dropped = len(res.Dropped)

	noBubble := 0
	for _, g := range res.Groups {
		rec, ok := page.NewBubbleRecord(g, p.Options.ShrinkFactor)
		if !ok {
			noBubble++
			continue
		}
		st.records = append(st.records, rec)
	}

	report.Bubbles += len(st.records)
	report.FreeText += len(st.free)
	report.Dropped += st.dropped
	p.Log.WithField("page", st.index).Debugf("detections=%d bubbles=%d free=%d dropped=%d no_bubble=%d",
		len(dets), len(st.records), len(st.free), st.dropped, noBubble)
}

func (p *Project) extractText(ctx context.Context, pages []*pageState) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Options.Workers)
	for _, st := range pages {
		if st.err != nil {
			continue
		}
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					st.err = fmt.Errorf("ocr: panic: %v", r)
					p.Log.WithField("page", st.index).Warnf("[!] OCR: %v", st.err)
				}
			}()
			for i := range st.records {
				if err := gctx.Err(); err != nil {
					return err
				}
				rec := &st.records[i]
				text, err := p.OCR.ExtractText(gctx, crop(st.img, rec.OCRBox()))
				if err != nil {
					// Стирание не зависит от текста: пузырь всё равно будет очищен.
					p.Log.WithFields(logrus.Fields{"page": st.index, "bubble": rec.ID}).Warnf("[!] OCR: %v", err)
					continue
				}
				rec.OriginalText = text
			}
			return nil
		})
	}
	return g.Wait()
}

func (p *Project) translate(ctx context.Context, pages []*pageState, report *Report) {
	var texts []string
	var targets []*page.BubbleRecord
	for _, st := range pages {
		if st.err != nil {
			continue
		}
		for i := range st.records {
			rec := &st.records[i]
			if rec.OriginalText == "" {
				continue
			}
			texts = append(texts, rec.OriginalText)
			targets = append(targets, rec)
		}
	}
	if len(texts) == 0 {
		return
	}

	res := translate.WithFallback(ctx, p.Translator, texts)
	for i, rec := range targets {
		rec.TranslatedText = res.Texts[i]
		rec.Translation = res.Outcomes[i]
	}

	report.Translated = len(texts) - res.Fallbacks()
	report.Fallbacks = res.Fallbacks()
	if res.Err != nil {
		report.TranslationErr = res.Err
		p.Log.Warnf("[!] Перевод не удался, %d из %d текстов оставлены без перевода: %v", res.Fallbacks(), len(texts), res.Err)
	}
}

func (p *Project) renderPages(ctx context.Context, pages []*pageState, report *Report) error {
	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Options.Workers)
	for _, st := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := p.renderPage(gctx, st)
			if err := p.Writer.Write(res); err != nil {
				return fmt.Errorf("write page %d: %w", st.index, err)
			}

			mu.Lock()
			done++
			n := done
			report.add(res)
			mu.Unlock()

			if res.Err != nil {
				p.Log.WithField("page", st.index).Warnf("[!] Страница %d сохранена без изменений: %v", st.index+1, res.Err)
			} else {
				p.Log.Infof("[>] Ready: %d/%d", n, len(pages))
			}
			st.img = nil
			return nil
		})
	}
	return g.Wait()
}

// renderPage erases and re-letters one page. Any failure, including a panic,
// leaves the original pixels in place.
func (p *Project) renderPage(ctx context.Context, st *pageState) (res page.Result) {
	res = page.Result{
		Index:    st.index,
		Name:     st.name,
		Ext:      st.ext,
		Original: st.img,
		Image:    st.img,
		Bubbles:  st.records,
		FreeText: st.free,
		Dropped:  st.dropped,
		Err:      st.err,
	}
	if st.err != nil {
		return res
	}

	defer func() {
		if r := recover(); r != nil {
			res.Image = st.img
			res.Err = fmt.Errorf("panic: %v", r)
		}
	}()

	regions := make([]geometry.Box, len(st.records))
	for i, rec := range st.records {
		regions[i] = rec.EraseBox()
	}
	out, err := p.Compositor.Inpaint(ctx, st.img, regions)
	if err != nil {
		res.Err = fmt.Errorf("inpaint: %w", err)
		return res
	}

	m := p.Font.Measurer()
	records := make([]page.BubbleRecord, len(st.records))
	copy(records, st.records)
	for i := range records {
		rec := &records[i]
		l := layout.FitText(rec.TextBox, rec.TranslatedText, m, p.Options.Layout)
		rec.Layout = l.Status
		rec.FontSize = l.FontSize
		switch l.Status {
		case layout.StatusFitted:
			layout.Render(out, l, m.Face(l.FontSize), p.Options.TextColor)
		case layout.StatusSkipped:
			p.Log.WithFields(logrus.Fields{"page": st.index, "bubble": rec.ID}).
				Warnf("[!] Текст не помещается в %v: %q", rec.TextBox, rec.TranslatedText)
		}
	}

	res.Image = out
	res.Bubbles = records
	return res
}

// crop returns the part of img inside b. The result shares pixels with img
// when the image supports SubImage.
func crop(img image.Image, b geometry.Box) image.Image {
	r := b.Clip(img.Bounds()).Rect().Intersect(img.Bounds())
	if s, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return s.SubImage(r)
	}
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Rect, img, r.Min, draw.Src)
	return out
}
