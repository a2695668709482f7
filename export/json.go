package export

import (
	"encoding/json"
	"fmt"
	"io/fs"
)

var jsonDocuments = []string{"user_data.json", "user_data_tiktok.json"}

// The JSON export nests each list a few levels deep, and the names have changed between export versions. Everything
// is optional; a missing list is an empty category.
type jsonVideo struct {
	Date      string `json:"Date"`
	Link      string `json:"Link"`
	VideoLink string `json:"VideoLink"`
}

func (v jsonVideo) record() rawRecord {
	link := v.Link
	if link == "" {
		link = v.VideoLink
	}
	return rawRecord{Date: v.Date, Link: link}
}

type jsonVideoList struct {
	VideoList []jsonVideo `json:"VideoList"`
}

type jsonActivity struct {
	FavoriteVideos *struct {
		FavoriteVideoList []jsonVideo `json:"FavoriteVideoList"`
	} `json:"Favorite Videos"`
	LikeList *struct {
		ItemFavoriteList []jsonVideo `json:"ItemFavoriteList"`
	} `json:"Like List"`
	VideoBrowsingHistory *jsonVideoList `json:"Video Browsing History"`
	WatchHistory         *jsonVideoList `json:"Watch History"`
}

type jsonUserData struct {
	Activity     *jsonActivity `json:"Activity"`
	YourActivity *jsonActivity `json:"Your Activity"`
	Video        *struct {
		Videos *jsonVideoList `json:"Videos"`
	} `json:"Video"`
	Post *struct {
		Posts *jsonVideoList `json:"Posts"`
	} `json:"Post"`
}

// lists returns the video list of every category whose section is present. A present but empty section maps to an
// empty list; an absent one has no key.
func (d *jsonUserData) lists() map[Category][]jsonVideo {
	lists := make(map[Category][]jsonVideo)
	set := func(c Category, videos []jsonVideo) {
		if _, ok := lists[c]; !ok {
			lists[c] = videos
		}
	}
	for _, activity := range []*jsonActivity{d.Activity, d.YourActivity} {
		if activity == nil {
			continue
		}
		if activity.FavoriteVideos != nil {
			set(Favourites, activity.FavoriteVideos.FavoriteVideoList)
		}
		if activity.LikeList != nil {
			set(Likes, activity.LikeList.ItemFavoriteList)
		}
		if activity.VideoBrowsingHistory != nil {
			set(History, activity.VideoBrowsingHistory.VideoList)
		}
		if activity.WatchHistory != nil {
			set(History, activity.WatchHistory.VideoList)
		}
	}
	if d.Video != nil && d.Video.Videos != nil {
		set(Uploads, d.Video.Videos.VideoList)
	}
	if d.Post != nil && d.Post.Posts != nil {
		set(Uploads, d.Post.Posts.VideoList)
	}
	return lists
}

func readJSON(fsys fs.FS, name string, a *Archive) error {
	f, err := fsys.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	var data jsonUserData
	if err := json.NewDecoder(f).Decode(&data); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	lists := data.lists()
	if len(lists) == 0 {
		return fmt.Errorf("%s: %w", name, ErrNotExport)
	}
	for _, c := range Categories {
		videos, ok := lists[c]
		if !ok {
			continue
		}
		records := make([]rawRecord, 0, len(videos))
		for _, v := range videos {
			records = append(records, v.record())
		}
		a.add(c, name, records)
	}
	return nil
}
