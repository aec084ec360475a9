package model

// Genre 电影类型（TMDB id + 名称）
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Movie 电影（TMDB 信息），只读，不做持久化
type Movie struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title,omitempty"`
	Overview         string  `json:"overview"`
	Tagline          string  `json:"tagline,omitempty"`
	PosterPath       string  `json:"poster_path"`
	BackdropPath     string  `json:"backdrop_path"`
	ReleaseDate      string  `json:"release_date"`
	Runtime          int     `json:"runtime,omitempty"`
	Genres           []Genre `json:"genres,omitempty"`
	GenreIDs         []int   `json:"genre_ids,omitempty"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count,omitempty"`
	Popularity       float64 `json:"popularity,omitempty"`
	OriginalLanguage string  `json:"original_language,omitempty"`
}

// MoviePage 分页的电影列表（搜索、分类发现）
type MoviePage struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// WatchProvider 观看平台
type WatchProvider struct {
	ProviderID      int    `json:"provider_id"`
	ProviderName    string `json:"provider_name"`
	LogoPath        string `json:"logo_path"`
	DisplayPriority int    `json:"display_priority"`
}

// RegionProviders 某地区按观看方式分组的平台
type RegionProviders struct {
	Link     string          `json:"link,omitempty"`
	Flatrate []WatchProvider `json:"flatrate"`
	Free     []WatchProvider `json:"free"`
	Rent     []WatchProvider `json:"rent"`
	Buy      []WatchProvider `json:"buy"`
}

// Empty 是否没有任何可用平台
func (r RegionProviders) Empty() bool {
	return len(r.Flatrate) == 0 && len(r.Free) == 0 && len(r.Rent) == 0 && len(r.Buy) == 0
}

// WatchProviders 电影在各地区的观看平台
type WatchProviders struct {
	ID      int                        `json:"id"`
	Results map[string]RegionProviders `json:"results"`
}

// ForRegion 返回指定地区的平台分组，缺失的分组为空切片
func (w *WatchProviders) ForRegion(code string) RegionProviders {
	var r RegionProviders
	if w != nil && w.Results != nil {
		r = w.Results[code]
	}
	if r.Flatrate == nil {
		r.Flatrate = []WatchProvider{}
	}
	if r.Free == nil {
		r.Free = []WatchProvider{}
	}
	if r.Rent == nil {
		r.Rent = []WatchProvider{}
	}
	if r.Buy == nil {
		r.Buy = []WatchProvider{}
	}
	return r
}
