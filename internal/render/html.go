package render

import (
	"html/template"
	"io"
)

var fragment = template.Must(template.New("list").Parse(`<div class="att-list{{if .Loading}} is-loading{{end}}">
{{- range .Cards}}
  <article class="att-card" data-id="{{.ID}}">
    {{- if .ImageURL}}<img class="att-image" src="{{.ImageURL}}" alt="{{.Title}}" loading="lazy">{{end}}
    <h3 class="att-title">{{.Title}}</h3>
    {{- if .Location}}<p class="att-location">{{.Location}}</p>{{end}}
    {{- if .OpeningHours}}<p class="att-hours">{{.OpeningHours}}</p>{{end}}
    {{- if .Description}}<p class="att-description">{{.Description}}</p>{{end}}
    {{- if .Tags}}<ul class="att-tags">{{range .Tags}}<li>{{.}}</li>{{end}}</ul>{{end}}
    <div class="att-actions">
      {{- range .Actions}}
      <button type="button" data-action="{{.Kind}}" data-target="{{.Target}}">{{.Label}}</button>
      {{- end}}
    </div>
  </article>
{{- end}}
{{- with .Empty}}
  <p class="att-empty" data-reason="{{.Reason}}">{{.Message}}</p>
{{- end}}
{{- if .ShowLoadMore}}
  <button type="button" class="att-more" data-action="load-more">Load more</button>
{{- end}}
</div>
`))

// HTML writes v as an HTML fragment.
func HTML(w io.Writer, v View) error {
	return fragment.Execute(w, v)
}
