// internal/scanreport/join.go
//
// Client-side joins of secondary entities onto reports.
//
// Every join builds an index of the secondary slice and writes into the
// report's resolved field, never into the raw key, so running a join twice
// with the same inputs leaves the result unchanged.  A key with no match
// leaves the resolved pointer nil.
package scanreport

// JoinDataPartners resolves DataPartnerID for every report.
func JoinDataPartners(reports []Report, partners []DataPartner) {
	idx := make(map[int]DataPartner, len(partners))
	for _, p := range partners {
		idx[p.ID] = p
	}
	for i := range reports {
		if p, ok := idx[reports[i].DataPartnerID]; ok {
			reports[i].DataPartner = &p
		} else {
			reports[i].DataPartner = nil
		}
	}
}

// JoinAuthors resolves AuthorID for every report.
func JoinAuthors(reports []Report, authors []Author) {
	idx := make(map[int]Author, len(authors))
	for _, a := range authors {
		idx[a.ID] = a
	}
	for i := range reports {
		if a, ok := idx[reports[i].AuthorID]; ok {
			reports[i].Author = &a
		} else {
			reports[i].Author = nil
		}
	}
}

// AttachTables gives each report the tables that reference it.  Reports
// without tables get an empty, non-nil slice ("counted, none").
func AttachTables(reports []Report, tables []Table) {
	byReport := make(map[int][]Table)
	for _, t := range tables {
		byReport[t.ScanReportID] = append(byReport[t.ScanReportID], t)
	}
	for i := range reports {
		own := byReport[reports[i].ID]
		reports[i].Tables = append(make([]Table, 0, len(own)), own...)
	}
}

// AttachFields gives each report the union of fields over its tables, in
// table order.  Reports whose tables are not counted yet are skipped.
func AttachFields(reports []Report, fields []Field) {
	byTable := make(map[int][]Field)
	for _, f := range fields {
		byTable[f.ScanReportTableID] = append(byTable[f.ScanReportTableID], f)
	}
	for i := range reports {
		if reports[i].Tables == nil {
			continue
		}
		own := make([]Field, 0)
		for _, t := range reports[i].Tables {
			own = append(own, byTable[t.ID]...)
		}
		reports[i].Fields = own
	}
}

// referencedIDs collects the raw keys the reference stage must resolve.
func referencedIDs(reports []Report) (partners, authors []int) {
	partners = make([]int, 0, len(reports))
	authors = make([]int, 0, len(reports))
	for _, r := range reports {
		partners = append(partners, r.DataPartnerID)
		authors = append(authors, r.AuthorID)
	}
	return partners, authors
}
