// Package textutil 提供文本清洗、过滤与分块工具函数。
package textutil

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// userPromptRe 匹配带编号的提示词标记。
	userPromptRe = regexp.MustCompile(`(?i)User\s+Prompt\s+\d+`)

	// pageNumberRe 匹配仅包含页码的行。
	pageNumberRe = regexp.MustCompile(`^\s*\d+\s*$`)

	// wordRe 匹配至少 3 个字母的单词。
	wordRe = regexp.MustCompile(`[A-Za-z]{3,}`)

	// spaceRe 匹配连续的水平空白字符。
	spaceRe = regexp.MustCompile(`[ \t]+`)

	// blankLinesRe 匹配 3 个及以上连续换行。
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// separators 递归分块使用的分隔符级联，按优先级排列。
// 空字符串表示按字符硬切分。
var separators = []string{"\n\n", "\n", ". ", "? ", "! ", " ", ""}

// CleanText 清洗提取出的原始文本：
// 统一换行符，折叠行内空白，移除仅含页码的行，压缩多余空行。
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if pageNumberRe.MatchString(line) {
			continue
		}
		line = spaceRe.ReplaceAllString(line, " ")
		cleaned = append(cleaned, strings.TrimRight(line, " "))
	}

	result := strings.Join(cleaned, "\n")
	result = blankLinesRe.ReplaceAllString(result, "\n\n")
	return strings.TrimSpace(result)
}

// IsJunk 判断文本块是否为无效内容。
// 命中提示词标记或少于 5 个空白分隔词的块视为无效。
func IsJunk(text string) bool {
	trimmed := strings.TrimSpace(text)
	if strings.Contains(trimmed, "User Prompt") {
		return true
	}
	if userPromptRe.MatchString(trimmed) {
		return true
	}
	return len(strings.Fields(trimmed)) < 5
}

// IsValidChunk 判断分块是否可以入库。
// 长度需大于 30 且不超过 maxLen 个字符，包含至少一个 3 字母以上的单词，
// 且不是无效内容。
func IsValidChunk(text string, maxLen int) bool {
	trimmed := strings.TrimSpace(text)
	n := utf8.RuneCountInString(trimmed)
	if n <= 30 || n > maxLen {
		return false
	}
	if !wordRe.MatchString(trimmed) {
		return false
	}
	return !IsJunk(trimmed)
}

// ChunkConfig 分块配置。
type ChunkConfig struct {
	// TargetSize 目标块大小（字符数）。
	TargetSize int
	// Overlap 相邻块之间的重叠大小。
	Overlap int
	// MinSize 段落累积阶段触发切分的最小块大小。
	MinSize int
	// MaxSize 单段落直接进入递归切分的上限。
	MaxSize int
}

// Split 将清洗后的文本分块。
// 第一遍按段落累积，装不下且已达最小长度时封块；
// 第二遍将仍超过上限的块退回到分隔符级联的递归切分，
// 重叠只在递归阶段引入。无效块被丢弃，返回的块按出现顺序编号。
func Split(text string, cfg ChunkConfig) []string {
	if cfg.TargetSize <= 0 {
		return nil
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	if cfg.Overlap >= cfg.TargetSize {
		cfg.Overlap = cfg.TargetSize - 1
	}
	if cfg.MaxSize < cfg.TargetSize {
		cfg.MaxSize = cfg.TargetSize
	}

	var sealed []string
	var buf string
	bufLen := 0

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		paraLen := utf8.RuneCountInString(para)
		if bufLen+paraLen > cfg.MaxSize && bufLen >= cfg.MinSize {
			sealed = append(sealed, buf)
			buf = ""
			bufLen = 0
		}

		if buf == "" {
			buf = para
			bufLen = paraLen
		} else {
			buf += "\n\n" + para
			bufLen += 2 + paraLen
		}
	}
	if buf != "" {
		sealed = append(sealed, buf)
	}

	var chunks []string
	for _, chunk := range sealed {
		if utf8.RuneCountInString(chunk) <= cfg.MaxSize {
			chunks = append(chunks, chunk)
			continue
		}
		chunks = append(chunks, recursiveSplit(chunk, separators, cfg.TargetSize, cfg.Overlap)...)
	}

	valid := chunks[:0]
	for _, chunk := range chunks {
		if !IsJunk(chunk) {
			valid = append(valid, chunk)
		}
	}
	return valid
}

// recursiveSplit 按分隔符级联递归切分超长文本。
func recursiveSplit(text string, seps []string, size, overlap int) []string {
	if utf8.RuneCountInString(text) <= size {
		return []string{text}
	}

	sep := ""
	rest := seps
	for i, s := range seps {
		if s == "" || strings.Contains(text, s) {
			sep = s
			rest = seps[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		pieces = splitRunes(text, size)
	} else {
		parts := strings.Split(text, sep)
		for i, p := range parts {
			if i < len(parts)-1 {
				p += sep
			}
			if p != "" {
				pieces = append(pieces, p)
			}
		}
	}

	var chunks []string
	var buf strings.Builder
	bufLen := 0

	flush := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			chunks = append(chunks, s)
		}
		buf.Reset()
		bufLen = 0
	}

	for _, piece := range pieces {
		pieceLen := utf8.RuneCountInString(piece)

		if pieceLen > size {
			flush()
			chunks = append(chunks, recursiveSplit(piece, rest, size, overlap)...)
			continue
		}

		if bufLen+pieceLen > size {
			tail := tailRunes(buf.String(), overlap)
			flush()
			if tail != "" {
				buf.WriteString(tail)
				bufLen = utf8.RuneCountInString(tail)
			}
		}

		buf.WriteString(piece)
		bufLen += pieceLen
	}
	flush()

	return chunks
}

// splitRunes 按字符数硬切分文本。
func splitRunes(text string, size int) []string {
	runes := []rune(text)
	var out []string
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[i:end]))
	}
	return out
}

// tailRunes 返回文本末尾至多 n 个字符。
func tailRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}

// CosineSimilarity 计算两个向量的余弦相似度。
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// RoundScore 将相似度分数四舍五入到 4 位小数。
func RoundScore(score float64) float64 {
	return math.Round(score*10000) / 10000
}

// TruncateString 截断字符串到指定的最大字符数。
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}
