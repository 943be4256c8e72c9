// Package vision 提供图片内容分析能力。
// 分析模型是外部协作方，通过 Analyzer 接口隔离；
// 本包负责把模型的自由文本输出解析为结构化结果。
package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/kart-io/docseek/pkg/llm"
)

// Analysis 图片分析的结构化结果。
type Analysis struct {
	Tags       []string
	Categories []string
	Caption    string
}

// SearchText 返回用于向量化的检索文本。
// 由标签与描述拼接而成，检索时图片按这段文本匹配。
func (a *Analysis) SearchText() string {
	parts := make([]string, 0, 2)
	if len(a.Tags) > 0 {
		parts = append(parts, strings.Join(a.Tags, ", "))
	}
	if a.Caption != "" {
		parts = append(parts, a.Caption)
	}
	return strings.Join(parts, ". ")
}

// Analyzer 定义图片分析接口。
type Analyzer interface {
	Analyze(ctx context.Context, imagePath string) (*Analysis, error)
}

const analysisPrompt = `Analyze the attached image and respond in exactly this format:
Tags: <comma-separated tags>
Categories: <comma-separated categories>
Caption: <one sentence caption>

Image (base64, %s):
%s`

// ChatAnalyzer 通过对话模型分析图片。
// 图片以 base64 内联在提示词中，适用于支持内联图片的模型。
type ChatAnalyzer struct {
	provider llm.ChatProvider
}

// NewChatAnalyzer 创建基于对话模型的分析器。
func NewChatAnalyzer(provider llm.ChatProvider) *ChatAnalyzer {
	return &ChatAnalyzer{provider: provider}
}

// Analyze 分析图片并返回结构化结果。
func (a *ChatAnalyzer) Analyze(ctx context.Context, imagePath string) (*Analysis, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	prompt := fmt.Sprintf(analysisPrompt, mediaTypeFromPath(imagePath), encoded)

	output, err := a.provider.Generate(ctx, prompt, "You are an image analysis assistant.")
	if err != nil {
		return nil, fmt.Errorf("image analysis failed: %w", err)
	}

	return ParseAnalysis(output), nil
}

func mediaTypeFromPath(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".gif"):
		return "image/gif"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// ParseAnalysis 把模型的自由文本输出解析为结构化结果。
// 识别 Tags/Categories/Caption 前缀行，其余行并入描述。
func ParseAnalysis(output string) *Analysis {
	analysis := &Analysis{}
	var captionLines []string

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case hasPrefixFold(line, "tags:"):
			analysis.Tags = splitList(line[len("tags:"):])
		case hasPrefixFold(line, "categories:"):
			analysis.Categories = splitList(line[len("categories:"):])
		case hasPrefixFold(line, "caption:"):
			if caption := strings.TrimSpace(line[len("caption:"):]); caption != "" {
				captionLines = append(captionLines, caption)
			}
		default:
			// 无前缀的行视为描述的延续
			captionLines = append(captionLines, line)
		}
	}

	analysis.Caption = strings.Join(captionLines, " ")
	return analysis
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// splitList 拆分逗号分隔的列表，去除空项与首尾空白。
func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
