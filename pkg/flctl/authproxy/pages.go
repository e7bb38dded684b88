package authproxy

import (
	"html/template"

	"github.com/gin-gonic/gin"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Faultline CLI Login</title>
  <style>
    body { font-family: sans-serif; max-width: 32rem; margin: 4rem auto; }
    input[type=text] { font-size: 1.2rem; padding: 0.4rem; text-transform: uppercase; }
    .error { color: #b00020; }
  </style>
</head>
<body>
  <h1>Faultline CLI Login</h1>
{{if .Error}}  <p class="error">{{.Error}}</p>
{{end}}{{if .ShowForm}}  <p>Enter the code displayed by the CLI:</p>
  <form method="get" action="/device/verify">
    <input type="text" name="user_code" value="{{.UserCode}}" autofocus>
    <button type="submit">Continue</button>
  </form>
{{end}}{{if .Message}}  <p>{{.Message}}</p>
{{end}}</body>
</html>
`))

type pageData struct {
	ShowForm bool
	UserCode string
	Error    string
	Message  string
}

func renderPage(c *gin.Context, status int, data pageData) {
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	_ = pageTemplate.Execute(c.Writer, data)
}
