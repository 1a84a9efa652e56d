package config

// DefaultCompanies returns the default EGX trading universe. Tickers use the
// Yahoo Finance .CA suffix for Egyptian Exchange listings.
func DefaultCompanies() []Company {
	return []Company{
		// Banking & financial services
		{Ticker: "COMI.CA", Name: "Commercial International Bank (CIB)", ArabicName: "البنك التجاري الدولي", Sector: "Banking"},
		{Ticker: "HDBK.CA", Name: "Housing & Development Bank", ArabicName: "بنك التعمير والإسكان", Sector: "Banking"},
		{Ticker: "CIEB.CA", Name: "Credit Agricole Egypt", ArabicName: "كريدي أجريكول مصر", Sector: "Banking"},
		{Ticker: "ADIB.CA", Name: "Abu Dhabi Islamic Bank Egypt", ArabicName: "مصرف أبوظبي الإسلامي مصر", Sector: "Banking"},
		{Ticker: "EXPA.CA", Name: "Export Development Bank", ArabicName: "البنك المصري لتنمية الصادرات", Sector: "Banking"},
		{Ticker: "EFIH.CA", Name: "E-Finance", ArabicName: "إي فاينانس", Sector: "FinTech"},
		{Ticker: "HRHO.CA", Name: "EFG Holding", ArabicName: "إي إف جي القابضة", Sector: "Financial Services"},
		{Ticker: "FWRY.CA", Name: "Fawry", ArabicName: "فوري", Sector: "FinTech"},

		// Real estate & construction
		{Ticker: "TMGH.CA", Name: "Talaat Moustafa Group", ArabicName: "طلعت مصطفى القابضة", Sector: "Real Estate"},
		{Ticker: "PHDC.CA", Name: "Palm Hills Development", ArabicName: "بالم هيلز للتعمير", Sector: "Real Estate"},
		{Ticker: "EMFD.CA", Name: "Emaar Misr", ArabicName: "إعمار مصر", Sector: "Real Estate"},
		{Ticker: "OCDI.CA", Name: "Orascom Development", ArabicName: "أوراسكوم للتنمية", Sector: "Real Estate"},
		{Ticker: "HELI.CA", Name: "Heliopolis Housing", ArabicName: "مصر الجديدة للإسكان", Sector: "Real Estate"},

		// Industrial & manufacturing
		{Ticker: "SWDY.CA", Name: "Elsewedy Electric", ArabicName: "السويدي إليكتريك", Sector: "Industrial"},
		{Ticker: "ORWE.CA", Name: "Oriental Weavers", ArabicName: "السجاد الشرقية", Sector: "Textiles"},

		// Food & beverages
		{Ticker: "JUFO.CA", Name: "Juhayna Food Industries", ArabicName: "جهينة للصناعات الغذائية", Sector: "Food & Beverages"},
		{Ticker: "EAST.CA", Name: "Eastern Company", ArabicName: "الشرقية للدخان", Sector: "Tobacco"},
		{Ticker: "EFID.CA", Name: "Edita Food Industries", ArabicName: "إيديتا للصناعات الغذائية", Sector: "Food & Beverages"},

		// Telecommunications
		{Ticker: "ETEL.CA", Name: "Telecom Egypt", ArabicName: "المصرية للاتصالات", Sector: "Telecommunications"},

		// Petrochemicals & chemicals
		{Ticker: "SKPC.CA", Name: "Sidi Kerir Petrochemicals", ArabicName: "سيدي كرير للبتروكيماويات", Sector: "Petrochemicals"},
		{Ticker: "ABUK.CA", Name: "Abu Qir Fertilizers", ArabicName: "أبوقير للأسمدة", Sector: "Fertilizers"},
		{Ticker: "AMOC.CA", Name: "Alexandria Mineral Oils", ArabicName: "زيوت الإسكندرية المعدنية", Sector: "Petrochemicals"},

		// Pharmaceuticals & healthcare
		{Ticker: "ISPH.CA", Name: "Ibnsina Pharma", ArabicName: "ابن سينا فارما", Sector: "Pharmaceuticals"},

		// Building materials
		{Ticker: "ARCC.CA", Name: "Arabian Cement", ArabicName: "العربية للأسمنت", Sector: "Cement"},
		{Ticker: "SVCE.CA", Name: "South Valley Cement", ArabicName: "جنوب الوادى للأسمنت", Sector: "Cement"},
	}
}
