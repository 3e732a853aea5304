package player

import (
	"html/template"

	"github.com/reelhouse/reelhouse/internal/content"
	"github.com/reelhouse/reelhouse/internal/embed"
)

type pageData struct {
	Nonce       string
	AppName     string
	Model       content.DisplayModel
	State       string
	Sources     []embed.Source
	TrailerHref string
	ContentHref string
	WatchURL    string
	ShowAds     bool
}

type notFoundPageData struct {
	Nonce   string
	AppName string
}

const frameAllow = "accelerometer; autoplay; clipboard-write; encrypted-media; gyroscope; picture-in-picture; web-share"

var playerBoxTemplate = `{{define "player-box"}}
{{- if eq .State "show_trailer"}}
<div class="frame-wrap">
    <iframe src="{{.Model.TrailerEmbed.URL}}" title="{{.Model.TrailerFrameTitle}}" allow="` + frameAllow + `" allowfullscreen></iframe>
    <a class="back-to-content" href="{{.ContentHref}}">Back to Content</a>
</div>
{{- else if eq .State "show_embedded_main"}}
<div class="frame-wrap">
    <iframe src="{{.Model.Embed.URL}}" title="{{.Model.FrameTitle}}" allow="` + frameAllow + `" allowfullscreen></iframe>
    <div class="shade shade-top"></div>
    <div class="shade shade-bottom"></div>
</div>
{{- else if eq .State "show_native_main"}}
<video controls preload="metadata"{{if .Model.PosterURL}} poster="{{.Model.PosterURL}}"{{end}}>
    {{- range .Sources}}
    <source src="{{.URL}}" type="{{.Type}}">
    {{- end}}
    Your browser does not support the video tag.
</video>
{{- else}}
<div class="unavailable">
    <div class="unavailable-title">&#9888; Video Not Available</div>
    <p>No video URL found for this content</p>
    <p class="unavailable-type">Content Type: {{.Model.TypeLabel}}</p>
</div>
{{- end}}
{{end}}`

var baseStyle = `
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            background: #050807;
            color: #e2e8f0;
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
        }
        a { color: inherit; }
        .player-box {
            position: relative;
            aspect-ratio: 16 / 9;
            background: linear-gradient(135deg, #000 0%, #0a2a1c 50%, #000 100%);
            border: 1px solid rgba(10, 125, 75, 0.3);
            border-radius: 12px;
            overflow: hidden;
        }
        .frame-wrap { position: relative; width: 100%; height: 100%; }
        iframe, video { width: 100%; height: 100%; border: none; display: block; filter: contrast(1.1) brightness(1.05); }
        video { object-fit: cover; outline: none; }
        .shade { position: absolute; left: 0; right: 0; height: 2rem; pointer-events: none; }
        .shade-top { top: 0; background: linear-gradient(to bottom, rgba(0,0,0,0.8), transparent); }
        .shade-bottom { bottom: 0; background: linear-gradient(to top, rgba(0,0,0,0.8), transparent); }
        .back-to-content {
            position: absolute;
            top: 1rem;
            right: 1rem;
            padding: 0.375rem 0.75rem;
            background: rgba(0,0,0,0.8);
            border: 1px solid rgba(255,255,255,0.3);
            border-radius: 6px;
            font-size: 0.8rem;
            text-decoration: none;
        }
        .unavailable {
            height: 100%;
            display: flex;
            flex-direction: column;
            align-items: center;
            justify-content: center;
            text-align: center;
            color: #94a3b8;
            font-size: 0.875rem;
        }
        .unavailable-title { color: #f87171; font-size: 1.125rem; margin-bottom: 0.5rem; }
        .unavailable-type { font-size: 0.75rem; opacity: 0.7; margin-top: 0.5rem; }`

var pageTemplate = template.Must(template.New("player").Parse(playerBoxTemplate + `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{if .Model.Title}}{{.Model.Title}} - {{end}}{{.AppName}}</title>
    {{- if .Model.Title}}
    <meta property="og:title" content="{{.Model.Title}}">
    {{- end}}
    {{- if .Model.PosterURL}}
    <meta property="og:image" content="{{.Model.PosterURL}}">
    {{- end}}
    {{- if .WatchURL}}
    <meta property="og:url" content="{{.WatchURL}}">
    <meta property="og:type" content="video.other">
    {{- end}}
    <style nonce="{{.Nonce}}">` + baseStyle + `
        .site-header {
            position: fixed;
            top: 0;
            left: 0;
            right: 0;
            height: 4rem;
            display: flex;
            align-items: center;
            padding: 0 1.5rem;
            background: rgba(5, 8, 7, 0.9);
            border-bottom: 1px solid rgba(255,255,255,0.06);
            z-index: 10;
        }
        .brand { font-weight: 700; font-size: 1.25rem; color: #0a7d4b; text-decoration: none; }
        main { max-width: 1200px; margin: 0 auto; padding: 6rem 1.5rem 2rem; }
        .back {
            display: inline-flex;
            align-items: center;
            gap: 0.5rem;
            margin-bottom: 1.5rem;
            padding: 0.375rem 0.75rem;
            border: 1px solid rgba(10, 125, 75, 0.3);
            border-radius: 6px;
            color: #0a7d4b;
            font-size: 0.875rem;
            text-decoration: none;
        }
        .card {
            display: grid;
            grid-template-columns: 1fr;
            gap: 2rem;
            padding: 2rem;
            border: 1px solid rgba(255,255,255,0.08);
            border-radius: 16px;
            background: linear-gradient(135deg, rgba(0,0,0,0.9), rgba(10,125,75,0.2), rgba(0,0,0,0.9));
        }
        @media (min-width: 1024px) { .card { grid-template-columns: 1fr 1fr; } }
        .details { position: relative; }
        .type-badge {
            position: absolute;
            top: 0;
            right: 0;
            padding: 0.5rem 1rem;
            border: 1px solid rgba(234, 179, 8, 0.5);
            border-radius: 8px;
            background: linear-gradient(90deg, rgba(202,138,4,0.9), rgba(161,98,7,0.9));
            color: #fef9c3;
            font-size: 0.875rem;
            font-weight: 700;
        }
        h1 { font-size: 1.875rem; padding: 3rem 8rem 0 0; margin-bottom: 1rem; }
        .season-episode { color: #0a7d4b; font-size: 1.125rem; font-weight: 500; margin-bottom: 1rem; }
        .facts { display: flex; flex-wrap: wrap; align-items: center; gap: 1.5rem; font-size: 1.125rem; }
        .rating-badge {
            padding: 0.5rem 1rem;
            border: 1px solid rgba(10,125,75,0.3);
            border-radius: 8px;
            background: rgba(10,125,75,0.2);
            color: #0a7d4b;
            font-size: 0.875rem;
        }
        .score::before { content: "\2605"; color: #facc15; margin-right: 0.375rem; }
        .muted { color: #94a3b8; }
        .watch-trailer {
            display: inline-block;
            margin-top: 1.5rem;
            padding: 0.5rem 1rem;
            border-radius: 6px;
            background: #0a7d4b;
            color: #fff;
            font-weight: 600;
            text-decoration: none;
        }
        .ad {
            margin-top: 2rem;
            min-height: 400px;
            display: flex;
            flex-direction: column;
            align-items: center;
            justify-content: center;
            border: 1px solid rgba(255,255,255,0.05);
            border-radius: 16px;
            color: rgba(148,163,184,0.5);
        }
        .ad-title { font-size: 1.5rem; margin-bottom: 1rem; }
        .ad-size { font-size: 1.125rem; opacity: 0.6; }
    </style>
</head>
<body>
    <header class="site-header">
        <a class="brand" href="/">{{.AppName}}</a>
    </header>
    <main>
        <a class="back" id="back-button" href="/">&larr; Back</a>
        <section class="card">
            <div class="player-box" data-state="{{.State}}">
                {{template "player-box" .}}
            </div>
            <div class="details">
                <span class="type-badge">{{.Model.TypeLabel}}</span>
                <h1>{{.Model.Title}}</h1>
                {{- if .Model.SeasonEpisode}}
                <div class="season-episode">{{.Model.SeasonEpisode}}</div>
                {{- end}}
                <div class="facts">
                    {{- if .Model.Rating}}
                    <span class="rating-badge">{{.Model.Rating}}</span>
                    {{- end}}
                    {{- if .Model.Score}}
                    <span class="score">{{.Model.Score}}</span>
                    {{- end}}
                    {{- if .Model.Year}}
                    <span class="muted">{{.Model.Year}}</span>
                    {{- end}}
                    {{- if .Model.Duration}}
                    <span class="muted">{{.Model.Duration}}</span>
                    {{- end}}
                </div>
                {{- if .TrailerHref}}
                <a class="watch-trailer" href="{{.TrailerHref}}">Watch Trailer</a>
                {{- end}}
            </div>
        </section>
        {{- if .ShowAds}}
        <aside class="ad">
            <div class="ad-title">Advertisement Space</div>
            <div class="ad-size">Full Width Banner - 1200x400</div>
        </aside>
        {{- end}}
    </main>
    <script nonce="{{.Nonce}}">
        document.getElementById('back-button').addEventListener('click', function(e) {
            if (window.history.length > 1) {
                e.preventDefault();
                window.history.back();
            }
        });
    </script>
</body>
</html>`))

var embedPageTemplate = template.Must(template.New("embed").Parse(playerBoxTemplate + `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Model.FrameTitle}}</title>
    <style nonce="{{.Nonce}}">` + baseStyle + `
        html, body { width: 100%; height: 100%; overflow: hidden; background: #000; }
        .container { display: flex; flex-direction: column; width: 100%; height: 100%; }
        .player-box { flex: 1; min-height: 0; aspect-ratio: auto; border: none; border-radius: 0; }
        .footer {
            display: flex;
            align-items: center;
            justify-content: space-between;
            padding: 8px 12px;
            background: #0b1410;
            font-size: 13px;
        }
        .footer-title { white-space: nowrap; overflow: hidden; text-overflow: ellipsis; margin-right: 12px; }
        .footer a { color: #94a3b8; text-decoration: none; white-space: nowrap; font-size: 12px; }
        .footer a:hover { color: #e2e8f0; }
    </style>
</head>
<body>
    <div class="container">
        <div class="player-box" data-state="{{.State}}">
            {{template "player-box" .}}
        </div>
        <div class="footer">
            <span class="footer-title">{{.Model.Title}}</span>
            <a href="{{.WatchURL}}" target="_blank" rel="noopener">Watch on {{.AppName}}</a>
        </div>
    </div>
</body>
</html>`))

var notFoundPageTemplate = template.Must(template.New("not-found").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>Content not found - {{.AppName}}</title>
    <style nonce="{{.Nonce}}">
        body {
            margin: 0;
            min-height: 100vh;
            display: flex;
            align-items: center;
            justify-content: center;
            background: #050807;
            color: #e2e8f0;
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
        }
        .container { text-align: center; padding: 2rem; }
        h1 { font-size: 1.5rem; margin-bottom: 0.75rem; }
        p { color: #94a3b8; margin-bottom: 1.5rem; }
        a { color: #0a7d4b; text-decoration: none; font-weight: 600; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Content not found</h1>
        <p>This title may have been removed or the link is incorrect.</p>
        <a href="/">Browse {{.AppName}}</a>
    </div>
</body>
</html>`))
