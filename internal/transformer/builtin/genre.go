package builtin

import (
	"musicetl/internal/table"
)

// genreCategories groups fine-grained catalog genre tags.
var genreCategories = map[string][]string{
	"mood":           {"ambient", "chill", "happy", "sad", "sleep", "study", "comedy"},
	"electronic":     {"afrobeat", "breakbeat", "chicago-house", "club", "dance", "deep-house", "detroit-techno", "dub", "dubstep", "edm", "electro", "electronic", "house", "idm", "techno", "minimal-techno", "trance", "hardstyle"},
	"pop":            {"anime", "cantopop", "j-pop", "k-pop", "pop", "power-pop", "synth-pop", "indie-pop", "pop-film"},
	"urban":          {"hip-hop", "j-dance", "j-idol", "r-n-b", "trip-hop"},
	"latino":         {"brazil", "latin", "latino", "reggaeton", "salsa", "samba", "spanish", "pagode", "sertanejo", "mpb"},
	"global sounds":  {"indian", "iranian", "malay", "mandopop", "reggae", "turkish", "ska", "dancehall", "tango"},
	"jazz and soul":  {"blues", "bluegrass", "funk", "gospel", "jazz", "soul"},
	"varied themes":  {"children", "disney", "forro", "grindcore", "kids", "party", "romance", "show-tunes"},
	"instrumental":   {"acoustic", "classical", "folk", "guitar", "piano", "singer-songwriter", "songwriter", "world-music", "opera", "new-age"},
	"single genre":   {"country", "progressive-house", "swedish", "emo", "honky-tonk", "french", "german", "drum-and-bass", "groove", "disco"},
	"rock and metal": {"alt-rock", "alternative", "british", "grunge", "hard-rock", "indie", "metal", "metalcore", "punk-rock", "rock", "rock-n-roll", "black-metal", "death-metal", "hardcore", "heavy-metal", "industrial", "psych-rock", "rockabilly", "goth", "punk", "j-rock", "garage"},
}

// genreIndex is genreCategories inverted: tag -> category.
var genreIndex = func() map[string]string {
	idx := make(map[string]string)
	for cat, tags := range genreCategories {
		for _, tag := range tags {
			idx[tag] = cat
		}
	}
	return idx
}()

// GenreCategory returns the coarse category for a genre tag.
func GenreCategory(tag string) (string, bool) {
	c, ok := genreIndex[tag]
	return c, ok
}

// Genre writes the coarse category of From into To. Unknown tags and nulls
// map to nil.
type Genre struct {
	From string
	To   string
}

func (g Genre) Apply(in *table.Table) (*table.Table, error) {
	if err := in.Require("genre", g.From); err != nil {
		return nil, err
	}
	out := in.Clone()
	out.AddColumn(g.To, table.KindString)
	for _, r := range out.Rows {
		r[g.To] = nil
		if tag, ok := r.String(g.From); ok {
			if c, ok := GenreCategory(tag); ok {
				r[g.To] = c
			}
		}
	}
	return out, nil
}
