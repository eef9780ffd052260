package book

// APIBook is the read-only representation served by the public JSON API.
type APIBook struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	PubDate   string `json:"pub_date"`
	PubLang   string `json:"pub_lang"`
	ISBN      []ISBN `json:"isbn"`
	Pages     *int   `json:"pages"`
	CoverLink string `json:"cover_link"`
}

func Serialize(b Book) APIBook {
	isbns := b.ISBNs
	if isbns == nil {
		isbns = []ISBN{}
	}
	return APIBook{
		Title:     b.Title,
		Author:    b.Author,
		PubDate:   b.PublishedDate,
		PubLang:   b.Language,
		ISBN:      isbns,
		Pages:     b.Pages,
		CoverLink: b.CoverURL,
	}
}

func SerializeAll(books []Book) []APIBook {
	out := make([]APIBook, len(books))
	for i, b := range books {
		out[i] = Serialize(b)
	}
	return out
}
