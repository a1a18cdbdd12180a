package imgx

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
)

// CheckJPEG 校验 path 是一张可解码的 JPEG（只读头部，不解码像素）。
//
// 截图成功的判定除“文件存在且非空”外还包括这一步：外部工具在时间点
// 越界或输入损坏时，偶尔会写出截断/半截的 JPEG，退出码却是 0。
func CheckJPEG(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cfg, err := jpeg.DecodeConfig(f)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return fmt.Errorf("%q 不是 JPEG：%w", path, err)
		}
		return fmt.Errorf("%q JPEG 头部损坏：%w", path, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%q 图片尺寸无效：%dx%d", path, cfg.Width, cfg.Height)
	}
	return nil
}
