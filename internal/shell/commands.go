package shell

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/tarnish-app/tarnish/internal/library"
)

func builtinCommands() []Command {
	return []Command{
		{Name: "update", Summary: "recompute download status from the library root", Run: runUpdate},
		{Name: "download", Usage: "download <n>", Summary: "fetch entry n of not_downloaded into the staging directory", Run: runDownload},
		{Name: "downloaded", Summary: "list entries present in the library root", Run: runDownloaded},
		{Name: "not_downloaded", Summary: "list entries missing from the library root", Run: runNotDownloaded},
		{Name: "cache_all_metadata", Summary: "write entry json and media into the metadata directory", Run: runCacheAllMetadata},
		{Name: "cache_thumbnails", Summary: "warm the cache with every thumbnail", Run: runCacheThumbnails},
		{Name: "cache_screenshots", Summary: "warm the cache with every screenshot", Run: runCacheScreenshots},
		{Name: "stray", Summary: "list installers waiting in the staging directory", Run: runStray},
		{Name: "move", Summary: "move staged installers into the library root", Run: runMove},
		{Name: "verify", Summary: "check md5 of downloaded installers", Run: runVerify},
		{Name: "status", Summary: "print download counts", Run: runStatus},
		{Name: "help", Summary: "list commands", Run: runHelp},
		{Name: "exit", Summary: "leave the shell", Run: func(context.Context, *Shell, []string) error { return ErrExit }},
	}
}

func runUpdate(_ context.Context, s *Shell, _ []string) error {
	printStats(s, s.lib.UpdateDownloadStatus())
	return nil
}

func runStatus(_ context.Context, s *Shell, _ []string) error {
	printStats(s, s.lib.Stats())
	return nil
}

func printStats(s *Shell, stats library.Stats) {
	s.printf("Downloaded: %d; Total: %d\n", stats.NumberDownloaded, stats.Total)
}

func runDownload(ctx context.Context, s *Shell, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: download <n>")
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid index %q: %w", args[0], err)
	}
	pending := s.lib.NotDownloaded()
	if index < 0 || index >= len(pending) {
		return fmt.Errorf("index %d out of range, %d entries not downloaded", index, len(pending))
	}
	game := pending[index]
	s.printf("Downloading: %s\n", s.lib.Format(game))
	path, err := s.lib.Download(ctx, s.client, game)
	if err != nil {
		return err
	}
	s.printf("Saved %s, run move to file it into the library\n", path)
	return nil
}

func runDownloaded(_ context.Context, s *Shell, _ []string) error {
	printGames(s, s.lib.Downloaded())
	return nil
}

func runNotDownloaded(_ context.Context, s *Shell, _ []string) error {
	printGames(s, s.lib.NotDownloaded())
	return nil
}

func printGames(s *Shell, games []library.Game) {
	rows := make([][]string, 0, len(games))
	for i, game := range games {
		rows = append(rows, []string{
			strconv.Itoa(i),
			strconv.FormatInt(game.DateAdded, 10),
			game.HumanName,
			strconv.FormatBool(game.Downloaded),
		})
	}
	s.println(renderTable(
		[]string{"#", "Added", "Name", "Downloaded"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft},
		s.fancy,
	))
}

func runCacheAllMetadata(ctx context.Context, s *Shell, _ []string) error {
	report, err := s.lib.CacheAllMetadata(ctx)
	s.printf("Metadata written: %d; skipped: %d\n", report.Written, report.Skipped)
	return err
}

func runCacheThumbnails(ctx context.Context, s *Shell, _ []string) error {
	cached, err := s.lib.CacheThumbnails(ctx)
	s.printf("Thumbnails cached: %d\n", cached)
	return err
}

func runCacheScreenshots(ctx context.Context, s *Shell, _ []string) error {
	cached, err := s.lib.CacheScreenshots(ctx)
	s.printf("Screenshots cached: %d\n", cached)
	return err
}

func runStray(_ context.Context, s *Shell, _ []string) error {
	strays, err := s.lib.StrayDownloads()
	if err != nil {
		return err
	}
	s.printf("In downloads: %d\n", len(strays))
	for _, path := range strays {
		s.println(path)
	}
	return nil
}

func runMove(_ context.Context, s *Shell, _ []string) error {
	report, err := s.lib.MoveDownloads()
	if err != nil {
		return err
	}
	s.printf("Moved: %d; left in staging: %d\n", len(report.Moved), len(report.Unmoved))
	if len(report.Unmoved) > 0 {
		rows := make([][]string, 0, len(report.Unmoved))
		for _, item := range report.Unmoved {
			rows = append(rows, []string{item.Path, string(item.Reason), item.Err})
		}
		s.println(renderTable([]string{"Path", "Reason", "Error"}, rows, nil, s.fancy))
	}
	printStats(s, s.lib.UpdateDownloadStatus())
	return nil
}

func runVerify(_ context.Context, s *Shell, _ []string) error {
	mismatches, err := s.lib.VerifyDownloads()
	if len(mismatches) == 0 {
		s.println("All checksums match")
	} else {
		rows := make([][]string, 0, len(mismatches))
		for _, m := range mismatches {
			rows = append(rows, []string{m.MachineName, m.Expected, m.Actual})
		}
		s.println(renderTable([]string{"Entry", "Expected", "Actual"}, rows, nil, s.fancy))
	}
	return err
}

func runHelp(_ context.Context, s *Shell, _ []string) error {
	rows := make([][]string, 0, len(s.List()))
	for _, cmd := range s.List() {
		usage := cmd.Usage
		if usage == "" {
			usage = cmd.Name
		}
		rows = append(rows, []string{usage, cmd.Summary})
	}
	s.println(renderTable([]string{"Command", "Description"}, rows, nil, s.fancy))
	return nil
}
