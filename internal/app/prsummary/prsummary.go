// prsummary describes the working tree changes of the site repository
// as Markdown for a pull request.
package prsummary

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
	"github.com/serialforbreakfast/tsds/internal/app/model"
	"github.com/serialforbreakfast/tsds/internal/app/ports"
	"github.com/serialforbreakfast/tsds/internal/infra/adapters/logger"
)

const (
	// MaxListed files are listed per category, the rest are counted.
	MaxListed = 5

	CatalogPath   = "data/movies.json"
	StreamingPath = "data/streaming_data.json"
)

// Changes holds porcelain status paths per category.
type Changes struct {
	Modified []string
	Added    []string
	Deleted  []string
	Renamed  []string
}

func (c Changes) Total() int {
	return len(c.Modified) + len(c.Added) + len(c.Deleted) + len(c.Renamed)
}

func (c Changes) Contains(path string) bool {
	for _, list := range [][]string{c.Modified, c.Added, c.Renamed} {
		for _, p := range list {
			if p == path || strings.HasSuffix(p, " -> "+path) {
				return true
			}
		}
	}
	return false
}

// ParseStatus classifies git status --porcelain lines. The index
// column wins over the work tree column, untracked files count as
// added.
func ParseStatus(lines []string) Changes {
	var c Changes
	for _, line := range lines {
		if len(line) < 4 {
			continue
		}
		xy, path := line[:2], strings.TrimSpace(line[3:])
		if xy == "??" {
			c.Added = append(c.Added, path)
			continue
		}
		code := xy[0]
		if code == ' ' {
			code = xy[1]
		}
		switch code {
		case 'M', 'T':
			c.Modified = append(c.Modified, path)
		case 'A':
			c.Added = append(c.Added, path)
		case 'D':
			c.Deleted = append(c.Deleted, path)
		case 'R', 'C':
			c.Renamed = append(c.Renamed, path)
		}
	}
	return c
}

// DataChanges counts changed lines of the catalog diff.
type DataChanges struct {
	EpisodesAdded    int
	EpisodesRemoved  int
	TitlesAdded      int
	TitlesRemoved    int
	StreamingUpdated bool
}

// CatalogDiff returns the unified diff of before against after and the
// number of added and removed episode_number and title lines.
func CatalogDiff(before, after string) (string, DataChanges) {
	var dc DataChanges
	if before == after {
		return "", dc
	}
	edits := myers.ComputeEdits(span.URIFromPath(CatalogPath), before, after)
	diff := fmt.Sprint(gotextdiff.ToUnified("a/"+CatalogPath, "b/"+CatalogPath, before, edits))
	for _, line := range strings.Split(diff, "\n") {
		var added bool
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			continue
		case strings.HasPrefix(line, "+"):
			added = true
		case strings.HasPrefix(line, "-"):
		default:
			continue
		}
		switch {
		case strings.Contains(line, `"episode_number"`):
			if added {
				dc.EpisodesAdded++
			} else {
				dc.EpisodesRemoved++
			}
		case strings.Contains(line, `"title"`):
			if added {
				dc.TitlesAdded++
			} else {
				dc.TitlesRemoved++
			}
		}
	}
	return diff, dc
}

// Links are the production and staging site addresses.
type Links struct {
	Production string
	Staging    string
}

// NewLinks derives the links from the repository. pullRequest is the
// PR number, "latest" when empty.
func NewLinks(repo model.Repository, pullRequest string) Links {
	pr := strings.TrimSpace(pullRequest)
	if pr == "" {
		pr = "latest"
	}
	root := repo.PagesURL()
	return Links{
		Production: root + "/output/index.html",
		Staging:    root + "/staging/pr-" + pr + "/",
	}
}

// Summary is everything the Markdown summary is rendered from.
type Summary struct {
	Links   Links
	Changes Changes
	Data    DataChanges
}

// Generator collects a Summary from version control and the working
// catalog.
type Generator struct {
	Git      ports.ForVersioning
	Links    Links
	ReadFile func(path string) ([]byte, error)
}

func (g *Generator) Collect(ctx context.Context) (*Summary, error) {
	l := logger.FromContext(ctx)
	lines, err := g.Git.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to get status: %w", err)
	}
	s := &Summary{
		Links:   g.Links,
		Changes: ParseStatus(lines),
	}
	s.Data.StreamingUpdated = s.Changes.Contains(StreamingPath)
	if !s.Changes.Contains(CatalogPath) {
		return s, nil
	}
	before, err := g.Git.Show(ctx, "HEAD", CatalogPath)
	if err != nil {
		if !errors.Is(err, ports.ErrNotFound) {
			return nil, err
		}
		l.Debug("Catalog not in HEAD, diffing against empty", "path", CatalogPath)
	}
	after, err := g.ReadFile(CatalogPath)
	if err != nil {
		return nil, err
	}
	_, s.Data = CatalogDiff(before, string(after))
	s.Data.StreamingUpdated = s.Changes.Contains(StreamingPath)
	l.Debug("Catalog diff", "episodesAdded", s.Data.EpisodesAdded, "episodesRemoved", s.Data.EpisodesRemoved, "titlesAdded", s.Data.TitlesAdded, "titlesRemoved", s.Data.TitlesRemoved)
	return s, nil
}

// Markdown renders s as a pull request description.
func (s *Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("# Change Summary\n\n")
	b.WriteString("## Site Links\n")
	fmt.Fprintf(&b, "- **Production:** %s\n", s.Links.Production)
	fmt.Fprintf(&b, "- **Staging:** %s\n", s.Links.Staging)

	b.WriteString("\n## Data Changes\n")
	d := s.Data
	if d.EpisodesAdded > 0 {
		fmt.Fprintf(&b, "- Added %d episode entries\n", d.EpisodesAdded)
	}
	if d.EpisodesRemoved > 0 {
		fmt.Fprintf(&b, "- Removed or modified %d episode entries\n", d.EpisodesRemoved)
	}
	if d.TitlesAdded > 0 {
		fmt.Fprintf(&b, "- Added %d title lines\n", d.TitlesAdded)
	}
	if d.TitlesRemoved > 0 {
		fmt.Fprintf(&b, "- Removed or modified %d title lines\n", d.TitlesRemoved)
	}
	if d.StreamingUpdated {
		b.WriteString("- Updated streaming sources\n")
	}
	if d == (DataChanges{}) {
		b.WriteString("- No data changes\n")
	}

	b.WriteString("\n## Files Changed\n")
	fmt.Fprintf(&b, "- **Total files changed:** %d\n", s.Changes.Total())
	for _, category := range []struct {
		name  string
		files []string
	}{
		{"Modified", s.Changes.Modified},
		{"Added", s.Changes.Added},
		{"Deleted", s.Changes.Deleted},
		{"Renamed", s.Changes.Renamed},
	} {
		if len(category.files) == 0 {
			continue
		}
		fmt.Fprintf(&b, "- **%s:** %d files\n", category.name, len(category.files))
		for i, f := range category.files {
			if i == MaxListed {
				fmt.Fprintf(&b, "  - ... and %d more\n", len(category.files)-MaxListed)
				break
			}
			fmt.Fprintf(&b, "  - `%s`\n", f)
		}
	}

	b.WriteString("\n## Review Checklist\n")
	b.WriteString("1. **Compare Staging vs Production:**\n")
	fmt.Fprintf(&b, "   - Production: %s\n", s.Links.Production)
	fmt.Fprintf(&b, "   - Staging: %s\n", s.Links.Staging)
	b.WriteString("2. **Test Responsive Design:** Check on desktop, tablet, mobile\n")
	b.WriteString("3. **Verify Functionality:** Test search, filters and sorting\n")
	b.WriteString("4. **Check Performance:** Ensure no significant regressions\n")
	return b.String()
}
