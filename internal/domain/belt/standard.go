package belt

// Standard returns the built-in ITF ladder: ten colored-belt keup grades
// followed by five dan grades. 10th Keup has the highest sort order.
func Standard() []Rank {
	return []Rank{
		{ID: "10th_keup", Name: "10th Keup", ShortName: "10th Keup", Color: "White Belt", SortOrder: 15, IsBeginnerTier: true},
		{ID: "9th_keup", Name: "9th Keup", ShortName: "9th Keup", Color: "White Belt Yellow Tag", SortOrder: 14, IsBeginnerTier: true},
		{ID: "8th_keup", Name: "8th Keup", ShortName: "8th Keup", Color: "Yellow Belt", SortOrder: 13, IsBeginnerTier: true},
		{ID: "7th_keup", Name: "7th Keup", ShortName: "7th Keup", Color: "Yellow Belt Green Tag", SortOrder: 12, IsBeginnerTier: true},
		{ID: "6th_keup", Name: "6th Keup", ShortName: "6th Keup", Color: "Green Belt", SortOrder: 11},
		{ID: "5th_keup", Name: "5th Keup", ShortName: "5th Keup", Color: "Green Belt Blue Tag", SortOrder: 10},
		{ID: "4th_keup", Name: "4th Keup", ShortName: "4th Keup", Color: "Blue Belt", SortOrder: 9},
		{ID: "3rd_keup", Name: "3rd Keup", ShortName: "3rd Keup", Color: "Blue Belt Red Tag", SortOrder: 8},
		{ID: "2nd_keup", Name: "2nd Keup", ShortName: "2nd Keup", Color: "Red Belt", SortOrder: 7},
		{ID: "1st_keup", Name: "1st Keup", ShortName: "1st Keup", Color: "Red Belt Black Tag", SortOrder: 6},
		{ID: "1st_dan", Name: "1st Dan", ShortName: "1st Dan", Color: "Black Belt", SortOrder: 5, IsDan: true},
		{ID: "2nd_dan", Name: "2nd Dan", ShortName: "2nd Dan", Color: "Black Belt", SortOrder: 4, IsDan: true},
		{ID: "3rd_dan", Name: "3rd Dan", ShortName: "3rd Dan", Color: "Black Belt", SortOrder: 3, IsDan: true},
		{ID: "4th_dan", Name: "4th Dan", ShortName: "4th Dan", Color: "Black Belt", SortOrder: 2, IsDan: true},
		{ID: "5th_dan", Name: "5th Dan", ShortName: "5th Dan", Color: "Black Belt", SortOrder: 1, IsDan: true},
	}
}

// StandardCatalog returns Standard as a validated Catalog.
func StandardCatalog() *Catalog {
	return MustCatalog(Standard())
}
