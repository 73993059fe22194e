package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image/png"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/wojo-o/inker-sub000/design"
	canvasrenderer "github.com/wojo-o/inker-sub000/renderer/canvas"
	"github.com/wojo-o/inker-sub000/session"
	"github.com/wojo-o/inker-sub000/source"
)

func main() {
	input := flag.String("design", "examples/demo.json", "设计稿 JSON 文件路径")
	output := flag.String("out", "output/preview.png", "PNG 输出路径")
	dataJSON := flag.String("data", "", "数据源 JSON（内联），按数据源 ID 1 提供")
	catalogURL := flag.String("catalog", "", "模板目录服务地址，留空使用内置目录")
	watch := flag.Bool("watch", false, "监听设计稿变化并自动重渲染")
	flag.Parse()

	var root any
	if *dataJSON != "" {
		if err := json.Unmarshal([]byte(*dataJSON), &root); err != nil {
			log.Fatalf("解析 data JSON 失败: %v", err)
		}
	}

	ctx := context.Background()

	var catalog source.CatalogClient
	if *catalogURL != "" {
		catalog = source.NewHTTPClient(*catalogURL, nil)
	}
	templates, err := source.LoadTemplates(ctx, catalog)
	if err != nil {
		log.Fatalf("加载模板目录失败: %v", err)
	}

	if err := render(ctx, *input, *output, templates, root); err != nil {
		log.Fatalf("生成预览失败: %v", err)
	}
	fmt.Printf("已生成预览：%s\n", *output)

	if *watch {
		if err := watchAndRender(ctx, *input, *output, templates, root); err != nil {
			log.Fatalf("监听失败: %v", err)
		}
	}
}

// render 串联加载、数据绑定与渲染。
func render(ctx context.Context, inputPath, outputPath string, templates []design.WidgetTemplate, root any) error {
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("无法读取设计稿 %s: %w", inputPath, err)
	}
	doc, err := design.Load(raw)
	if err != nil {
		return fmt.Errorf("解析设计稿失败: %w", err)
	}

	data := &source.StaticClient{Values: map[int64]any{1: root}}
	s := session.New(doc, templates, session.Options{
		Data:    data,
		Painter: canvasrenderer.NewRenderer(canvasrenderer.Options{}),
	})
	defer s.Close()

	for _, w := range doc.Widgets {
		if err := s.Refresh(ctx, w.ID); err != nil {
			// 单个组件的绑定失败不阻断整稿渲染，渲染端会给出占位符。
			log.Printf("组件 %d 数据绑定失败: %v", w.ID, err)
		}
	}

	img, err := s.Capture()
	if err != nil {
		return fmt.Errorf("渲染失败: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("创建输出文件失败: %w", err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("写入 PNG 失败: %w", err)
	}
	return nil
}

// watchAndRender 监听设计稿所在目录，文件变化时重新渲染。
func watchAndRender(ctx context.Context, inputPath, outputPath string, templates []design.WidgetTemplate, root any) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建监听器失败: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(inputPath)); err != nil {
		return fmt.Errorf("监听 %s 失败: %w", inputPath, err)
	}
	log.Printf("监听中：%s", inputPath)

	target, _ := filepath.Abs(inputPath)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			path, _ := filepath.Abs(event.Name)
			if path != target || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := render(ctx, inputPath, outputPath, templates, root); err != nil {
				log.Printf("重渲染失败: %v", err)
				continue
			}
			log.Printf("已更新预览：%s", outputPath)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("监听错误: %v", err)
		}
	}
}
