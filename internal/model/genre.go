package model

import "strings"

// GenreInfo 分类浏览用的固定类型目录
type GenreInfo struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Heading    string `json:"heading"`
	Subheading string `json:"subheading"`
}

// Genres 与 TMDB 类型 id 对齐，顺序即展示顺序
var Genres = []GenreInfo{
	newGenreInfo(28, "Action"),
	newGenreInfo(12, "Adventure"),
	newGenreInfo(16, "Animation"),
	newGenreInfo(35, "Comedy"),
	newGenreInfo(80, "Crime"),
	newGenreInfo(99, "Documentary"),
	newGenreInfo(18, "Drama"),
	newGenreInfo(10751, "Family"),
	newGenreInfo(14, "Fantasy"),
	newGenreInfo(36, "History"),
	newGenreInfo(27, "Horror"),
	newGenreInfo(10402, "Music"),
	newGenreInfo(9648, "Mystery"),
	newGenreInfo(10749, "Romance"),
	newGenreInfo(878, "Science Fiction"),
	{
		ID:         10770,
		Name:       "TV Movie",
		Heading:    "Top TV Movies This Week",
		Subheading: "Check out this week's most popular TV movies",
	},
	newGenreInfo(53, "Thriller"),
	newGenreInfo(10752, "War"),
	newGenreInfo(37, "Western"),
}

func newGenreInfo(id int, name string) GenreInfo {
	return GenreInfo{
		ID:         id,
		Name:       name,
		Heading:    "Top " + name + " Movies This Week",
		Subheading: "Check out this week's most popular " + strings.ToLower(name) + " movies",
	}
}

// FindGenre 按 id 查找类型
func FindGenre(id int) (GenreInfo, bool) {
	for _, g := range Genres {
		if g.ID == id {
			return g, true
		}
	}
	return GenreInfo{}, false
}
