package services

import (
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// TemplateRenderer 消息模板占位符替换
// 支持的格式：
// - {{name}} - 简单变量
// - {{guardian_name|default:Responsável}} - 默认值
// 未知且没有默认值的占位符原样保留，便于在消息里发现模板问题
type TemplateRenderer struct{}

// NewTemplateRenderer 创建模板渲染器
func NewTemplateRenderer() *TemplateRenderer {
	return &TemplateRenderer{}
}

// Render 用 vars 替换模板中的占位符
func (r *TemplateRenderer) Render(body string, vars map[string]string) string {
	if body == "" || !strings.Contains(body, "{{") {
		return body
	}

	return placeholderPattern.ReplaceAllStringFunc(body, func(match string) string {
		expr := placeholderPattern.FindStringSubmatch(match)[1]
		if value, ok := r.resolveVariable(expr, vars); ok {
			return value
		}
		return match
	})
}

// Placeholders 列出模板中引用的变量名
func (r *TemplateRenderer) Placeholders(body string) []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(body, -1) {
		name, _, _ := strings.Cut(strings.TrimSpace(m[1]), "|")
		name = strings.TrimSpace(name)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// resolveVariable 解析单个变量
func (r *TemplateRenderer) resolveVariable(expr string, vars map[string]string) (string, bool) {
	expr = strings.TrimSpace(expr)

	// 处理默认值语法: variable|default:value
	name, modifier, hasModifier := strings.Cut(expr, "|")
	name = strings.TrimSpace(name)

	if value, ok := vars[name]; ok && value != "" {
		return value, true
	}

	if hasModifier {
		modifier = strings.TrimSpace(modifier)
		if strings.HasPrefix(modifier, "default:") {
			def := strings.TrimSpace(strings.TrimPrefix(modifier, "default:"))
			// 去除引号
			if len(def) >= 2 && ((def[0] == '\'' && def[len(def)-1] == '\'') || (def[0] == '"' && def[len(def)-1] == '"')) {
				def = def[1 : len(def)-1]
			}
			return def, true
		}
	}

	if _, ok := vars[name]; ok {
		return "", true
	}
	return "", false
}
