// Package render turns posts into HTML pages.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"time"

	"inkwell/app/cms"
	"inkwell/app/models"

	"github.com/dustin/go-humanize"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Static returns the embedded stylesheet directory.
func Static() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// Options configures a Renderer.
type Options struct {
	SiteTitle  string
	DateLayout string
	Images     cms.ImageURLBuilder
}

// Renderer executes the page templates.
type Renderer struct {
	templates map[string]*template.Template
	opts      Options
}

func New(opts Options) (*Renderer, error) {
	if opts.SiteTitle == "" {
		opts.SiteTitle = "Medium"
	}
	if opts.DateLayout == "" {
		opts.DateLayout = "Jan 2, 2006, 3:04 PM"
	}
	templates := make(map[string]*template.Template)
	for name, file := range map[string]string{
		"index":     "templates/index.html",
		"post":      "templates/post.html",
		"not_found": "templates/not_found.html",
		"error":     "templates/error.html",
	} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
		templates[name] = t
	}
	return &Renderer{templates: templates, opts: opts}, nil
}

// Page carries the fields the layout needs.
type Page struct {
	Title     string
	SiteTitle string
}

// Card is one entry of the listing grid.
type Card struct {
	Href      string
	Title     string
	Byline    string
	ImageURL  string
	AvatarURL string
}

type listingPage struct {
	Page
	Cards []Card
}

// Cards maps posts to listing cards, keeping their order.
func (r *Renderer) Cards(posts []models.Post) []Card {
	cards := make([]Card, 0, len(posts))
	for i := range posts {
		p := &posts[i]
		cards = append(cards, Card{
			Href:      p.Path(),
			Title:     p.Title,
			Byline:    fmt.Sprintf("%s by %s", p.Description, p.Author.Name),
			ImageURL:  r.opts.Images.URL(p.MainImage, cms.Width(600)),
			AvatarURL: r.opts.Images.URL(p.Author.Image, cms.Width(96), cms.Height(96), cms.Fit("crop")),
		})
	}
	return cards
}

// Listing writes the home page grid.
func (r *Renderer) Listing(w io.Writer, posts []models.Post) error {
	data := listingPage{
		Page:  Page{Title: r.opts.SiteTitle + " App", SiteTitle: r.opts.SiteTitle},
		Cards: r.Cards(posts),
	}
	return r.execute(w, "index", data)
}

// FormView is the comment form as the detail page shows it.
type FormView struct {
	PostID    string
	Action    string
	Values    models.CommentForm
	Errors    models.FormErrors
	Submitted bool
}

// Messages returns the error lines in form order.
func (f FormView) Messages() []string {
	var out []string
	for _, key := range []string{"name", "email", "comment", "_id", "form"} {
		if msg, ok := f.Errors[key]; ok {
			out = append(out, msg)
		}
	}
	return out
}

type detailPage struct {
	Page
	Post      *models.Post
	CoverURL  string
	AvatarURL string
	Published string
	ISODate   string
	Age       string
	Body      template.HTML
	Comments  []models.Comment
	Form      FormView
}

// Detail writes an article page. A zero form renders the empty editor.
func (r *Renderer) Detail(w io.Writer, post *models.Post, form FormView) error {
	if form.Action == "" {
		form.Action = post.Path()
	}
	if form.PostID == "" {
		form.PostID = post.ID
	}
	data := detailPage{
		Page:      Page{Title: post.Title, SiteTitle: r.opts.SiteTitle},
		Post:      post,
		CoverURL:  r.opts.Images.URL(post.MainImage, cms.Width(1600)),
		AvatarURL: r.opts.Images.URL(post.Author.Image, cms.Width(96), cms.Height(96), cms.Fit("crop")),
		Body:      RichText(post.Body, r.opts.Images),
		Comments:  post.ApprovedComments(),
		Form:      form,
	}
	if !post.CreatedAt.IsZero() {
		data.Published = post.CreatedAt.Format(r.opts.DateLayout)
		data.ISODate = post.CreatedAt.Format(time.RFC3339)
		data.Age = humanize.Time(post.CreatedAt)
	}
	return r.execute(w, "post", data)
}

// NotFound writes the 404 page.
func (r *Renderer) NotFound(w io.Writer) error {
	return r.execute(w, "not_found", Page{Title: "404: Not Found", SiteTitle: r.opts.SiteTitle})
}

type errorPage struct {
	Page
	Status  int
	Message string
}

// Error writes a generic error page. message must not leak internals.
func (r *Renderer) Error(w io.Writer, status int, message string) error {
	return r.execute(w, "error", errorPage{
		Page:    Page{Title: http.StatusText(status), SiteTitle: r.opts.SiteTitle},
		Status:  status,
		Message: message,
	})
}

func (r *Renderer) execute(w io.Writer, name string, data any) error {
	if err := r.templates[name].ExecuteTemplate(w, "layout", data); err != nil {
		return fmt.Errorf("template %s: %w", name, err)
	}
	return nil
}
