package schema

// Default returns the lists used by the demo database: posts with ordered sections and a single author.
func Default() *Registry {
	return NewRegistry(
		List{
			Key:        "Post",
			Singular:   "Post",
			Plural:     "Posts",
			LabelField: "title",
			Fields: map[string]Field{
				"id":       {Path: "id", Label: "ID", Kind: KindID},
				"title":    {Path: "title", Label: "Title", Kind: KindText},
				"sections": {Path: "sections", Label: "Sections", Kind: KindRelationship, Ref: "Section", Many: true},
				"author":   {Path: "author", Label: "Author", Kind: KindRelationship, Ref: "Author"},
			},
		},
		List{
			Key:        "Section",
			Singular:   "Section",
			Plural:     "Sections",
			LabelField: "title",
			Fields: map[string]Field{
				"id":     {Path: "id", Label: "ID", Kind: KindID},
				"title":  {Path: "title", Label: "Title", Kind: KindText},
				"body":   {Path: "body", Label: "Body", Kind: KindText},
				"rating": {Path: "rating", Label: "Rating", Kind: KindStars, MaxStars: 5},
				"sort":   {Path: "sort", Label: "Sort", Kind: KindInteger},
			},
		},
		List{
			Key:        "Author",
			Singular:   "Author",
			Plural:     "Authors",
			LabelField: "name",
			Fields: map[string]Field{
				"id":    {Path: "id", Label: "ID", Kind: KindID},
				"name":  {Path: "name", Label: "Name", Kind: KindText},
				"email": {Path: "email", Label: "Email", Kind: KindText},
				"sort":  {Path: "sort", Label: "Sort", Kind: KindInteger},
			},
		},
	)
}
