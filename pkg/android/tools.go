package android

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/odvcencio/rpdist/pkg/distro"
	"github.com/odvcencio/rpdist/pkg/packager"
	"github.com/odvcencio/rpdist/pkg/report"
)

const javaLink = "https://adoptium.net/?variant=openjdk8"

// Tools locates the programs an android build runs. Rapt is the android
// support directory of the SDK.
type Tools struct {
	Rapt string
	// SDK is the Android SDK, read from rapt/sdk.txt when present.
	SDK string

	Java, Javac, Keytool string
	Gradlew              string
}

// NewTools resolves the tools of the running system. Java programs come
// from JAVA_HOME when it holds them.
func NewTools(rapt string) Tools {
	exe := ""
	gradlew := "gradlew"
	if runtime.GOOS == "windows" {
		exe = ".exe"
		gradlew = "gradlew.bat"
	}
	t := Tools{
		Rapt:    rapt,
		SDK:     filepath.Join(rapt, "Sdk"),
		Java:    javaHome("java" + exe),
		Javac:   javaHome("javac" + exe),
		Keytool: javaHome("keytool" + exe),
		Gradlew: gradlew,
	}
	if data, err := os.ReadFile(filepath.Join(rapt, "sdk.txt")); err == nil {
		t.SDK = strings.TrimSpace(string(data))
	}
	return t
}

func javaHome(name string) string {
	home := os.Getenv("JAVA_HOME")
	if home == "" {
		return name
	}
	p := filepath.Join(home, "bin", name)
	if _, err := os.Stat(p); err != nil {
		return name
	}
	return p
}

// SDKManager is the path of the sdkmanager script.
func (t Tools) SDKManager() string {
	name := "sdkmanager"
	if runtime.GOOS == "windows" {
		name = "sdkmanager.bat"
	}
	return filepath.Join(t.SDK, "cmdline-tools", "latest", "bin", name)
}

// CheckJava compiles and runs a small program to make sure a usable JDK
// is installed.
func (t Tools) CheckJava(ctx context.Context, r report.Reporter) error {
	r.Info("I'm compiling a short test program, to see if you have a working JDK on your system.")

	code, err := r.RunSubprocess(ctx, report.Command{Args: []string{t.Javac, filepath.Join(t.Rapt, "CheckJDK8.java")}})
	if err != nil {
		return err
	}
	if code != 0 {
		return r.Fail("I was unable to use javac to compile a test file. If you haven't installed the Java Development Kit yet, " +
			"please download it from:\n\n" + javaLink + "\n\nThe JDK is different from the JRE, so it's possible you have Java " +
			"without having the JDK. Please make sure you installed the 'JavaSoft (Oracle) registry keys'.\n\n" +
			"Without a working JDK, I can't continue.")
	}

	code, err = r.RunSubprocess(ctx, report.Command{Args: []string{t.Java, "-classpath", t.Rapt, "CheckJDK8"}})
	if err != nil {
		return err
	}
	if code != 0 {
		return r.Fail("The version of Java on your computer does not appear to be JDK 8, which is the only version supported " +
			"by the Android SDK. If you need to install JDK 8, you can download it from:\n\n" + javaLink +
			"\n\nYou can also set the JAVA_HOME environment variable to use a different version of Java.")
	}

	r.Success("The JDK is present and working. Good!")
	return nil
}

var sdkPackages = []struct{ name, dir string }{
	{"platform-tools", "platform-tools"},
	{"platforms;android-33", "platforms/android-33"},
}

// CheckSDK makes sure the Android SDK is unpacked and holds the packages
// a build needs, installing missing packages with sdkmanager.
func (t Tools) CheckSDK(ctx context.Context, r report.Reporter) error {
	if _, err := os.Stat(t.SDKManager()); err != nil {
		return r.Fail(fmt.Sprintf("The Android SDK was not found in %s. Install it with the Ren'Py launcher, "+
			"or write its location into %s.", t.SDK, filepath.Join(t.Rapt, "sdk.txt")))
	}
	r.Success("The Android SDK has already been unpacked.")

	var missing []string
	for _, p := range sdkPackages {
		if _, err := os.Stat(filepath.Join(t.SDK, filepath.FromSlash(p.dir))); err != nil {
			missing = append(missing, p.name)
		}
	}
	if len(missing) > 0 {
		r.Info("I'm about to download and install the required Android packages. This might take a while.")
		steps := []struct {
			args []string
			fail string
		}{
			{[]string{"--update"}, "I was unable to accept the Android licenses."},
			{[]string{"--licenses"}, "I was unable to accept the Android licenses."},
			{missing, "I was unable to install the required Android packages."},
		}
		for _, s := range steps {
			code, err := r.RunSubprocess(ctx, report.Command{Args: append([]string{t.SDKManager()}, s.args...), Yes: true})
			if err != nil {
				return err
			}
			if code != 0 {
				return r.Fail(s.fail)
			}
		}
	}
	r.Success("I've finished installing the required Android packages.")
	return nil
}

// SetProperty sets key in a java properties file. An existing value is
// kept unless replace is set.
func SetProperty(path, key, value string, replace bool) error {
	var lines []string
	if f, err := os.Open(path); err == nil {
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := sc.Text()
			k, _, _ := strings.Cut(line, "=")
			if strings.TrimSpace(k) == key {
				if !replace {
					f.Close()
					return nil
				}
				continue
			}
			lines = append(lines, line)
		}
		f.Close()
		if err := sc.Err(); err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read %s: %w", path, err)
	}

	lines = append(lines, key+"="+value)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// GetProperty returns the value of key in a java properties file, or def.
func GetProperty(path, key, def string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return def, nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	for line := range strings.Lines(string(data)) {
		k, v, _ := strings.Cut(line, "=")
		if strings.TrimSpace(k) == key {
			return strings.TrimSpace(v), nil
		}
	}
	return def, nil
}

// keys creates the signing keys of one build.
type keys struct {
	tools Tools
	c     *distro.Context
	r     report.Reporter
	// dname is asked once and used for every key.
	dname string
}

var keyPrompts = map[string]string{
	"android": "I can create an application signing key for you. This key is required to create Universal APK for " +
		"sideloading and stores other than Google Play.\n\nDo you want to create a key?",
	"bundle": "I can create a bundle signing key for you. This key is required to build an Android App Bundle (AAB) " +
		"for upload to Google Play.\n\nDo you want to create a key?",
}

// generate points the properties file at the name keystore, creating the
// keystore when the user agrees. It reports whether a key was created.
func (k *keys) generate(ctx context.Context, name, properties string) (bool, error) {
	for _, kv := range [][2]string{{"key.alias", "android"}, {"key.store.password", "android"}, {"key.alias.password", "android"}} {
		if err := SetProperty(properties, kv[0], kv[1], false); err != nil {
			return false, err
		}
	}

	keystore := filepath.ToSlash(filepath.Join(k.tools.Rapt, name+".keystore"))
	current, err := GetProperty(properties, "key.store", keystore)
	if err != nil || current != keystore {
		return false, err
	}
	if _, err := os.Stat(keystore); err == nil {
		return false, SetProperty(properties, "key.store", keystore, false)
	}

	if ok, err := k.r.YesNo(keyPrompts[name]); err != nil || !ok {
		return false, err
	}
	if k.dname == "" {
		org, err := k.r.Input("Please enter your name or the name of your organization.",
			report.InputOptions{Default: "A Ren'Py Creator", AllowEmpty: true})
		if err != nil {
			return false, err
		}
		k.dname = "CN=" + org
	}
	ok, err := k.r.YesNo(fmt.Sprintf("I will create the key in the %s.keystore file.\n\nYou need to back this file up. "+
		"If you lose it, you will not be able to upgrade your application.\n\nYou also need to keep the key safe. "+
		"If evil people get this file, they could make fake versions of your application, and potentially steal "+
		"your users' data.\n\nWill you make a backup of %s.keystore, and keep it in a safe place?", name, name))
	if err != nil || !ok {
		return false, err
	}

	code, err := k.r.RunSubprocess(ctx, report.Command{Args: []string{
		k.tools.Keytool, "-genkey", "-keystore", keystore, "-alias", "android", "-keyalg", "RSA",
		"-keysize", "2048", "-keypass", "android", "-storepass", "android", "-dname", k.dname, "-validity", "20000",
	}})
	if err != nil {
		return false, err
	}
	if code != 0 {
		return false, k.r.Fail(fmt.Sprintf("Could not create %s.keystore. Is keytool in your path?", name))
	}
	k.r.Success(fmt.Sprintf("I've finished creating %s.keystore. Please back it up, and keep it in a safe place.", name))

	if err := k.backup(keystore); err != nil {
		return false, err
	}
	return true, SetProperty(properties, "key.store", keystore, false)
}

// backup copies a new keystore into the saves of the project.
func (k *keys) backup(keystore string) error {
	dir := k.c.ProjectPath("game", "saves", "backups", "keys")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("backup keys: %w", err)
	}
	dst := filepath.Join(dir, fmt.Sprintf("%s-%d", filepath.Base(keystore), time.Now().Unix()))
	return packager.CopyFile(dst, keystore, false)
}
