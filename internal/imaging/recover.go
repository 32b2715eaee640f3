// internal/imaging/recover.go
package imaging

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// ErrNoOriginal means neither the originals area nor the sibling files
// hold a usable source for a watermarked image.
var ErrNoOriginal = errors.New("no original image found")

const (
	// A legacy original must be this much larger than the current file.
	legacySizeFactor = 1.2
	// Minimum name similarity for a legacy candidate.
	legacyCutoff = 0.1
)

// Recover finds the pre-watermark bytes of key. The originals area is
// checked first; files written before it existed are matched by size and
// name among the siblings of key.
func (p *Pipeline) Recover(ctx context.Context, key string) ([]byte, string, error) {
	if from, err := p.findArchived(ctx, key); err != nil {
		return nil, "", err
	} else if from != "" {
		data, err := p.store.Read(ctx, from)
		return data, from, err
	}

	from, err := p.findLegacy(ctx, key)
	if err != nil {
		return nil, "", err
	}
	if from == "" {
		return nil, "", ErrNoOriginal
	}
	data, err := p.store.Read(ctx, from)
	return data, from, err
}

func (p *Pipeline) findArchived(ctx context.Context, key string) (string, error) {
	exact := OriginalKey(key)
	if ok, err := p.store.Exists(ctx, exact); err != nil || ok {
		if ok {
			return exact, nil
		}
		return "", err
	}

	want := strings.TrimSuffix(stem(key), watermarkSuffix)
	files, err := p.store.List(ctx, path.Dir(exact))
	if err != nil {
		return "", err
	}
	for _, f := range files {
		if stem(f.Key) == want {
			return f.Key, nil
		}
	}
	return "", nil
}

func (p *Pipeline) findLegacy(ctx context.Context, key string) (string, error) {
	files, err := p.store.List(ctx, path.Dir(key))
	if err != nil {
		return "", err
	}

	var current int64 = -1
	for _, f := range files {
		if f.Key == key {
			current = f.Size
			break
		}
	}
	if current < 0 {
		return "", nil
	}

	byName := make(map[string]string)
	var names []string
	for _, f := range files {
		if f.Key == key || float64(f.Size) <= float64(current)*legacySizeFactor {
			continue
		}
		name := path.Base(f.Key)
		byName[name] = f.Key
		names = append(names, name)
	}
	if best, ok := closestName(path.Base(key), names, legacyCutoff); ok {
		return byName[best], nil
	}
	return "", nil
}

// closestName returns the name with the highest difflib ratio to target
// that reaches cutoff. Equal scores go to the lexically greater name.
func closestName(target string, names []string, cutoff float64) (string, bool) {
	matcher := difflib.NewMatcher(nil, chars(target))
	best, bestScore := "", -1.0
	for _, name := range names {
		matcher.SetSeq1(chars(name))
		if matcher.RealQuickRatio() < cutoff || matcher.QuickRatio() < cutoff {
			continue
		}
		score := matcher.Ratio()
		if score < cutoff {
			continue
		}
		if score > bestScore || (score == bestScore && name > best) {
			best, bestScore = name, score
		}
	}
	return best, bestScore >= 0
}

func chars(s string) []string {
	return strings.Split(s, "")
}
