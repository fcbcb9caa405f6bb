package main

import (
	"fmt"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"github.com/opdss/sheetkit/db"
	"github.com/opdss/sheetkit/excel/export"
	"github.com/opdss/sheetkit/process"
	"github.com/opdss/sheetkit/redis"
	serverhttp "github.com/opdss/sheetkit/server/http"
	"github.com/opdss/sheetkit/storage"
)

var (
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "启动导出 http 服务",
		RunE:  cmdServe,
	}

	setupCmd = &cobra.Command{
		Use:         "setup",
		Short:       "把当前配置写入配置目录",
		RunE:        cmdSetup,
		Annotations: map[string]string{"type": "setup"},
	}

	serveCfg struct {
		Layouts           string `help:"布局文件目录" default:"$CONFDIR/layouts"`
		Lock              bool   `help:"上传时使用 redis 锁" default:"false"`
		MaxRows           int    `help:"单次导出最大行数" default:"1000000"`
		SingleFileMaxRows int    `help:"单个文件最大行数,超过时切分并打包 zip" default:"100000"`
		Mode              string `help:"gin 运行模式,可选[debug|release|test]" default:"release" devDefault:"debug"`
		Server            serverhttp.Config
		Database          db.Config
		Storage           storage.Config
		Redis             redis.Config
	}
)

func cmdServe(cmd *cobra.Command, args []string) (err error) {
	ctx, _ := process.Ctx(cmd)
	log := zap.L()

	gdb, err := db.NewDB(log, serveCfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		err = errs.Combine(err, db.Close(gdb))
	}()
	fs, err := storage.New(serveCfg.Storage)
	if err != nil {
		return err
	}

	handler := serverhttp.NewHandler(gdb, fs, serveCfg.Layouts, log.Named("http"),
		export.WithMaxRows(serveCfg.MaxRows),
		export.WithSingleFileMaxRows(serveCfg.SingleFileMaxRows),
	)
	if serveCfg.Lock {
		rdb, rerr := redis.NewRedis(serveCfg.Redis)
		if rerr != nil {
			return rerr
		}
		defer func() {
			err = errs.Combine(err, rdb.Close())
		}()
		handler.WithLocker(redis.LockerFactory(rdb, lockPrefix))
	}

	gin.SetMode(serveCfg.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	handler.Register(engine)
	return serverhttp.NewServer(engine, log.Named("http"), serveCfg.Server).Start(ctx)
}

func cmdSetup(cmd *cobra.Command, args []string) error {
	dir, err := filepath.Abs(confDir)
	if err != nil {
		return errs.Wrap(err)
	}
	path := filepath.Join(dir, process.DefaultCfgFilename)
	if err = process.SaveConfig(cmd, path); err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
	return err
}
