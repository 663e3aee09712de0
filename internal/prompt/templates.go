package prompt

import (
	"text/template"
)

// systemPromptTemplateText renders on one line; sentence order is fixed.
const systemPromptTemplateText = `你是一个名叫{{.Name}}的AI角色。` +
	`{{if .Description}}你的描述是：{{.Description}}。{{end}}` +
	`你的性格是{{.Personality}}。` +
	`你的性别是{{.Gender}}。` +
	`{{if .Age}}你的年龄是{{.Age}}岁。{{end}}` +
	`{{if .BackgroundStory}}你的背景故事：{{.BackgroundStory}}。{{end}}` +
	`请以这个角色的身份与用户进行对话，保持角色的一致性和真实感。`

const styleTemplateText = `{{if .ResponseStyle}}请使用{{.ResponseStyle}}的风格回复。{{end}}` +
	`{{if .Language}}请使用{{.Language}}语言回复。{{end}}`

var (
	systemPromptTemplate = template.Must(template.New("system").Parse(systemPromptTemplateText))
	styleTemplate        = template.Must(template.New("style").Parse(styleTemplateText))
)
