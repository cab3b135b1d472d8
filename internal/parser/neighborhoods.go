package parser

// Neighborhood maps a canonical location key to the aliases that identify it
// in listing text.
type Neighborhood struct {
	Key     string
	Aliases []string
}

// Neighborhoods is checked in order; the first alias hit wins.
var Neighborhoods = []Neighborhood{
	// Central Tel Aviv
	{"florentin", []string{"florentin", "florentine", "פלורנטין"}},
	{"neve_tzedek", []string{"neve tzedek", "neve tsedek", "נווה צדק", "נוה צדק"}},
	{"kerem_hatemanim", []string{"kerem hatemanim", "kerem hateimanim", "כרם התימנים", "כרם תימנים"}},
	{"lev_hair", []string{"lev hair", "lev ha'ir", "לב העיר", "לב תל אביב", "מרכז העיר"}},
	{"rothschild", []string{"rothschild", "רוטשילד", "שדרות רוטשילד"}},
	{"dizengoff", []string{"dizengoff", "דיזנגוף"}},
	{"basel", []string{"basel", "בזל", "כיכר בזל"}},
	{"habima", []string{"habima", "הבימה"}},
	{"allenby", []string{"allenby", "אלנבי"}},

	// North
	{"old_north", []string{"old north", "צפון הישן", "הצפון הישן"}},
	{"new_north", []string{"new north", "צפון חדש", "הצפון החדש"}},
	{"ramat_aviv", []string{"ramat aviv", "רמת אביב"}},
	{"bavli", []string{"bavli", "בבלי"}},
	{"yarkon", []string{"yarkon", "הירקון", "פארק הירקון"}},

	// South
	{"shapira", []string{"shapira", "שפירא"}},
	{"neve_shaanan", []string{"neve shaanan", "נווה שאנן", "נוה שאנן"}},
	{"hatikva", []string{"hatikva", "התקווה", "שכונת התקווה"}},

	// Beach
	{"tel_aviv_port", []string{"namal", "tel aviv port", "נמל תל אביב", "נמל"}},
	{"gordon_beach", []string{"gordon", "גורדון"}},
	{"frishman", []string{"frishman", "פרישמן"}},

	// Nearby cities
	{"yaffo", []string{"jaffa", "yafo", "יפו"}},
	{"bat_yam", []string{"bat yam", "בת ים"}},
	{"givatayim", []string{"givatayim", "גבעתיים"}},
	{"ramat_gan", []string{"ramat gan", "רמת גן"}},
}
