package framedata

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/framedex/pkg/notation"
)

// DefaultImageBaseURL is the wiki upload root bare file names are expanded against.
const DefaultImageBaseURL = "https://www.dustloop.com/wiki/images"

type imageLinks struct {
	move     string
	hitboxes []string
}

type imageSet struct {
	defaultImage  string
	defaultHitbox string
	moves         map[string]imageLinks
}

// ExpandImage turns a bare MediaWiki file name into its upload URL. MediaWiki
// shards uploads by the MD5 of the file name: {base}/{h0}/{h0}{h1}/{name}.
// Absolute URLs and empty names are returned unchanged.
func ExpandImage(base, name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, "://") {
		return name
	}
	name = strings.ReplaceAll(name, " ", "_")
	sum := md5.Sum([]byte(name))
	h := hex.EncodeToString(sum[:1])
	return fmt.Sprintf("%s/%c/%s/%s", strings.TrimRight(base, "/"), h[0], h, name)
}

// buildImages links images.json entries to c's moves. Entries for unknown
// moves are logged and skipped. fallback is used when the file names no
// default; having neither is fatal.
func buildImages(c *Character, file ImageFile, base, fallback string, n *notation.Normalizer, logger *slog.Logger) error {
	if strings.TrimSpace(file.Default) == "" {
		file.Default = fallback
	}
	set := imageSet{
		defaultImage:  ExpandImage(base, file.Default),
		defaultHitbox: ExpandImage(base, file.DefaultHitbox),
		moves:         make(map[string]imageLinks, len(file.Moves)),
	}
	if set.defaultImage == "" {
		return &DataIntegrityError{Character: c.ID, Reason: "images: missing default image"}
	}
	if set.defaultHitbox == "" {
		set.defaultHitbox = set.defaultImage
	}

	for _, link := range file.Moves {
		key := n.Normalize(link.Input)
		if _, ok := c.byName[key]; !ok {
			logger.Warn("image entry for unknown move", "character", c.ID, "input", link.Input)
			continue
		}
		if _, dup := set.moves[key]; dup {
			return &DataIntegrityError{Character: c.ID, Reason: fmt.Sprintf("images: duplicate entry for %q", link.Input)}
		}
		l := imageLinks{move: ExpandImage(base, link.MoveImage)}
		for _, hb := range link.HitboxImages {
			if u := ExpandImage(base, hb); u != "" {
				l.hitboxes = append(l.hitboxes, u)
			}
		}
		set.moves[key] = l
	}
	c.images = set
	return nil
}
